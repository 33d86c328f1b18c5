package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCanceled   MatchStatus = "canceled"
)

// MatchStage separates group play from the elimination bracket. A pure
// single-elimination tournament only ever has knockout matches.
type MatchStage string

const (
	StageGroup    MatchStage = "group"
	StageKnockout MatchStage = "knockout"
)

// Match is one row of the matches table. (tournament_id, stage, group_label,
// round, match_number) is unique; group_label is NULL for knockout matches,
// so within any one bracket (round, match_number) never repeats.
type Match struct {
	ID             int         `json:"id" db:"id"`
	TournamentID   int         `json:"tournament_id" db:"tournament_id"`
	Stage          MatchStage  `json:"stage" db:"stage"`
	GroupLabel     *string     `json:"group_label,omitempty" db:"group_label"`
	Round          int         `json:"round" db:"round"`
	MatchNumber    int         `json:"match_number" db:"match_number"`
	Participant1ID *int        `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID *int        `json:"participant2_id,omitempty" db:"participant2_id"`
	WinnerID       *int        `json:"winner_id,omitempty" db:"winner_id"`
	Score          *string     `json:"score,omitempty" db:"score"`
	Status         MatchStatus `json:"status" db:"status"`
	BracketUID     *string     `json:"bracket_uid,omitempty" db:"bracket_uid"`
	NextMatchID    *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot   *int        `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	MatchTime      time.Time   `json:"match_time" db:"match_time"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// IsBye reports whether the match is a pre-resolved bye: only one participant,
// already recorded as the winner.
func (m *Match) IsBye() bool {
	return m.Participant1ID != nil && m.Participant2ID == nil &&
		m.WinnerID != nil && *m.WinnerID == *m.Participant1ID
}
