package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bekzhan-dev/tournament-platform/brackets"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
)

// Group play scoring: win 3, draw 1, loss 0.
const (
	pointsPerWin  = 3
	pointsPerDraw = 1
)

type StandingService interface {
	Recalculate(ctx context.Context, tournamentID int) ([]*models.GroupStanding, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.GroupStanding, error)
	PromoteQualifiers(ctx context.Context, tournament *models.Tournament) error
}

type standingService struct {
	db              *sql.DB
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	standingRepo    repositories.GroupStandingRepository
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewStandingService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	standingRepo repositories.GroupStandingRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) StandingService {
	return &standingService{
		db:              db,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		standingRepo:    standingRepo,
		hub:             hub,
		logger:          logger,
	}
}

// Recalculate rebuilds every group table of the tournament from its completed
// group matches and persists the rows.
func (s *standingService) Recalculate(ctx context.Context, tournamentID int) ([]*models.GroupStanding, error) {
	stage := models.StageGroup
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &stage, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list group matches for tournament %d: %w", tournamentID, err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}

	standings := computeGroupTables(tournamentID, matches, participants)
	for _, standing := range standings {
		if err := s.standingRepo.Upsert(ctx, nil, standing); err != nil {
			return nil, fmt.Errorf("failed to store standing for participant %d: %w", standing.ParticipantID, err)
		}
	}

	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventStandingsUpdated,
		Payload: standings,
		RoomID:  brackets.TournamentRoom(tournamentID),
	})

	return standings, nil
}

func (s *standingService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GroupStanding, error) {
	standings, err := s.standingRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings for tournament %d: %w", tournamentID, err)
	}
	return standings, nil
}

// PromoteQualifiers fills the first knockout round with the top qualifiers of
// each finished group. The number promoted per group is the same
// QualifiersPerGroup value the generator sized the bracket with; if they ever
// disagree the promotion fails rather than silently truncating.
func (s *standingService) PromoteQualifiers(ctx context.Context, tournament *models.Tournament) error {
	groupStage := models.StageGroup
	groupMatches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, &groupStage, nil)
	if err != nil {
		return fmt.Errorf("failed to list group matches for tournament %d: %w", tournament.ID, err)
	}
	if len(groupMatches) == 0 {
		return fmt.Errorf("%w: tournament %d has no group matches", ErrGroupStageIncomplete, tournament.ID)
	}
	for _, m := range groupMatches {
		if m.Status != models.MatchStatusCompleted {
			return fmt.Errorf("%w: match %d is %s", ErrGroupStageIncomplete, m.ID, m.Status)
		}
	}

	standings, err := s.Recalculate(ctx, tournament.ID)
	if err != nil {
		return err
	}

	qualifiersPerGroup := tournament.QualifiersPerGroup
	if qualifiersPerGroup <= 0 {
		qualifiersPerGroup = models.DefaultQualifiersPerGroup
	}
	qualifiers := selectQualifiers(standings, qualifiersPerGroup)

	knockout := models.StageKnockout
	firstRound := 1
	slots, err := s.matchRepo.ListByTournament(ctx, tournament.ID, &knockout, &firstRound)
	if err != nil {
		return fmt.Errorf("failed to list knockout round 1 for tournament %d: %w", tournament.ID, err)
	}
	if len(qualifiers) != len(slots)*2 {
		return fmt.Errorf("%w: %d qualifiers for %d slots", ErrKnockoutSizeMismatch, len(qualifiers), len(slots)*2)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Cross-pairing: match i takes qualifiers[i] and qualifiers[total-1-i],
	// so group winners land on opposite ends of the draw.
	total := len(qualifiers)
	for i, slot := range slots {
		p1 := qualifiers[i].ParticipantID
		p2 := qualifiers[total-1-i].ParticipantID
		if err = s.matchRepo.UpdateParticipants(ctx, tx, slot.ID, &p1, &p2); err != nil {
			return fmt.Errorf("failed to seat qualifiers into match %d: %w", slot.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit qualifier promotion for tournament %d: %w", tournament.ID, err)
	}

	s.logger.InfoContext(ctx, "qualifiers promoted",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("qualifiers", total))

	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournament.ID), brackets.WebSocketMessage{
		Type:    brackets.EventBracketGenerated,
		Payload: map[string]interface{}{"tournament_id": tournament.ID, "qualifiers": total},
		RoomID:  brackets.TournamentRoom(tournament.ID),
	})
	return nil
}

// computeGroupTables folds completed group matches into per-group tables.
// Ordering within a group: points, score difference, score for, then seed as
// the final deterministic tie-break.
func computeGroupTables(tournamentID int, matches []*models.Match, participants []*models.Participant) []*models.GroupStanding {
	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	rows := make(map[int]*models.GroupStanding)
	ensureRow := func(participantID int, groupLabel string) *models.GroupStanding {
		row, ok := rows[participantID]
		if !ok {
			row = &models.GroupStanding{
				TournamentID:  tournamentID,
				GroupLabel:    groupLabel,
				ParticipantID: participantID,
			}
			rows[participantID] = row
		}
		return row
	}

	for _, m := range matches {
		if m.GroupLabel == nil || m.Participant1ID == nil || m.Participant2ID == nil {
			continue
		}
		row1 := ensureRow(*m.Participant1ID, *m.GroupLabel)
		row2 := ensureRow(*m.Participant2ID, *m.GroupLabel)
		if m.Status != models.MatchStatusCompleted {
			continue
		}

		row1.GamesPlayed++
		row2.GamesPlayed++

		if score1, score2, ok := parseScore(m.Score); ok {
			row1.ScoreFor += score1
			row1.ScoreAgainst += score2
			row2.ScoreFor += score2
			row2.ScoreAgainst += score1
		}

		switch {
		case m.WinnerID == nil:
			row1.Draws++
			row2.Draws++
			row1.Points += pointsPerDraw
			row2.Points += pointsPerDraw
		case *m.WinnerID == *m.Participant1ID:
			row1.Wins++
			row2.Losses++
			row1.Points += pointsPerWin
		default:
			row2.Wins++
			row1.Losses++
			row2.Points += pointsPerWin
		}
	}

	standings := make([]*models.GroupStanding, 0, len(rows))
	for _, row := range rows {
		row.ScoreDifference = row.ScoreFor - row.ScoreAgainst
		standings = append(standings, row)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.GroupLabel != b.GroupLabel {
			return a.GroupLabel < b.GroupLabel
		}
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDifference != b.ScoreDifference {
			return a.ScoreDifference > b.ScoreDifference
		}
		if a.ScoreFor != b.ScoreFor {
			return a.ScoreFor > b.ScoreFor
		}
		return seedOf(byID, a.ParticipantID) < seedOf(byID, b.ParticipantID)
	})

	rank := 0
	lastGroup := ""
	for _, row := range standings {
		if row.GroupLabel != lastGroup {
			lastGroup = row.GroupLabel
			rank = 0
		}
		rank++
		r := rank
		row.Rank = &r
	}
	return standings
}

// selectQualifiers returns the top n of each group: rank 1 of every group in
// label order, then rank 2, and so on.
func selectQualifiers(standings []*models.GroupStanding, n int) []*models.GroupStanding {
	qualifiers := make([]*models.GroupStanding, 0)
	for rank := 1; rank <= n; rank++ {
		for _, row := range standings {
			if row.Rank != nil && *row.Rank == rank {
				qualifiers = append(qualifiers, row)
			}
		}
	}
	return qualifiers
}

func seedOf(byID map[int]*models.Participant, participantID int) int {
	if p, ok := byID[participantID]; ok {
		return p.Seed
	}
	return participantID
}
