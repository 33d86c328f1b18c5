package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bekzhan-dev/tournament-platform/brackets"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
)

type SubmitResultInput struct {
	Score    *string `json:"score,omitempty"`
	WinnerID int     `json:"winner_id"`
}

type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, stage *models.MatchStage, round *int) ([]*models.Match, error)
	SubmitResult(ctx context.Context, matchID int, input SubmitResultInput) (*models.Match, error)
}

type matchService struct {
	db        *sql.DB
	matchRepo repositories.MatchRepository
	hub       *brackets.Hub
	logger    *slog.Logger
}

func NewMatchService(db *sql.DB, matchRepo repositories.MatchRepository, hub *brackets.Hub, logger *slog.Logger) MatchService {
	return &matchService{
		db:        db,
		matchRepo: matchRepo,
		hub:       hub,
		logger:    logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, stage *models.MatchStage, round *int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, stage, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

// SubmitResult records a completed match and, when the match carries a feeder
// link, places the winner into the linked slot of the next knockout match.
// Both writes happen in one transaction; subscribers of the tournament room
// are notified afterwards.
func (s *matchService) SubmitResult(ctx context.Context, matchID int, input SubmitResultInput) (*models.Match, error) {
	match, err := s.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.Status == models.MatchStatusCompleted {
		return nil, ErrMatchAlreadyCompleted
	}
	if match.Participant1ID == nil || match.Participant2ID == nil {
		return nil, ErrMatchMissingParticipant
	}
	if input.WinnerID != *match.Participant1ID && input.WinnerID != *match.Participant2ID {
		return nil, ErrWinnerNotInMatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	winnerID := input.WinnerID
	if err = s.matchRepo.UpdateScoreStatusWinner(ctx, tx, matchID, input.Score, models.MatchStatusCompleted, &winnerID); err != nil {
		// Zero rows matched: a concurrent submission completed the match
		// between our read and this guarded update.
		if errors.Is(err, repositories.ErrMatchNotFound) {
			err = ErrMatchAlreadyCompleted
			return nil, err
		}
		return nil, fmt.Errorf("failed to record result for match %d: %w", matchID, err)
	}

	if match.NextMatchID != nil && match.WinnerToSlot != nil {
		if err = s.advanceWinner(ctx, tx, *match.NextMatchID, *match.WinnerToSlot, winnerID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit result for match %d: %w", matchID, err)
	}

	match.Score = input.Score
	match.Status = models.MatchStatusCompleted
	match.WinnerID = &winnerID

	s.hub.BroadcastToRoom(brackets.TournamentRoom(match.TournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventMatchUpdated,
		Payload: match,
		RoomID:  brackets.TournamentRoom(match.TournamentID),
	})

	return match, nil
}

func (s *matchService) advanceWinner(ctx context.Context, exec repositories.SQLExecutor, nextMatchID, slot, winnerID int) error {
	next, err := s.matchRepo.GetByID(ctx, nextMatchID)
	if err != nil {
		return fmt.Errorf("failed to load next match %d: %w", nextMatchID, err)
	}

	p1, p2 := next.Participant1ID, next.Participant2ID
	if slot == 1 {
		p1 = &winnerID
	} else {
		p2 = &winnerID
	}

	if err := s.matchRepo.UpdateParticipants(ctx, exec, nextMatchID, p1, p2); err != nil {
		return fmt.Errorf("failed to advance winner into match %d slot %d: %w", nextMatchID, slot, err)
	}

	s.logger.InfoContext(ctx, "winner advanced",
		slog.Int("winner_id", winnerID),
		slog.Int("next_match_id", nextMatchID),
		slog.Int("slot", slot))
	return nil
}
