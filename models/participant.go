package models

import "time"

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantWithdrawn ParticipantStatus = "withdrawn"
)

// Participant is a single tournament entrant. Seed is a dense 1..N permutation
// assigned before bracket generation; lower seed means higher priority.
type Participant struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	UserID       *int              `json:"user_id,omitempty" db:"user_id"`
	Name         string            `json:"name" db:"name"`
	Seed         int               `json:"seed" db:"seed"`
	Status       ParticipantStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
