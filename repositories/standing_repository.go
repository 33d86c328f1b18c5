package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/lib/pq"
)

var (
	ErrStandingNotFound           = errors.New("group standing not found")
	ErrStandingParticipantInvalid = errors.New("standing participant conflict or invalid")
)

type GroupStandingRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, standing *models.GroupStanding) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.GroupStanding, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresGroupStandingRepository struct {
	db *sql.DB
}

func NewPostgresGroupStandingRepository(db *sql.DB) GroupStandingRepository {
	return &postgresGroupStandingRepository{db: db}
}

func (r *postgresGroupStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert writes one standing row keyed by (tournament, participant). Standings
// are recomputed from match results, so an existing row is simply replaced.
func (r *postgresGroupStandingRepository) Upsert(ctx context.Context, exec SQLExecutor, standing *models.GroupStanding) error {
	query := `
		INSERT INTO group_standings
			(tournament_id, group_label, participant_id, points, games_played,
			 wins, draws, losses, score_for, score_against, score_difference, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tournament_id, participant_id) DO UPDATE SET
			group_label = EXCLUDED.group_label,
			points = EXCLUDED.points,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			draws = EXCLUDED.draws,
			losses = EXCLUDED.losses,
			score_for = EXCLUDED.score_for,
			score_against = EXCLUDED.score_against,
			score_difference = EXCLUDED.score_difference,
			rank = EXCLUDED.rank,
			updated_at = EXCLUDED.updated_at
		RETURNING id`

	if standing.UpdatedAt.IsZero() {
		standing.UpdatedAt = time.Now()
	}

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		standing.TournamentID,
		standing.GroupLabel,
		standing.ParticipantID,
		standing.Points,
		standing.GamesPlayed,
		standing.Wins,
		standing.Draws,
		standing.Losses,
		standing.ScoreFor,
		standing.ScoreAgainst,
		standing.ScoreDifference,
		standing.Rank,
		standing.UpdatedAt,
	).Scan(&standing.ID)

	return r.handleStandingError(err)
}

func (r *postgresGroupStandingRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GroupStanding, error) {
	query := `
		SELECT id, tournament_id, group_label, participant_id, points, games_played,
		       wins, draws, losses, score_for, score_against, score_difference, rank, updated_at
		FROM group_standings
		WHERE tournament_id = $1
		ORDER BY group_label ASC, rank ASC NULLS LAST, points DESC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]*models.GroupStanding, 0)
	for rows.Next() {
		var s models.GroupStanding
		if err := rows.Scan(
			&s.ID,
			&s.TournamentID,
			&s.GroupLabel,
			&s.ParticipantID,
			&s.Points,
			&s.GamesPlayed,
			&s.Wins,
			&s.Draws,
			&s.Losses,
			&s.ScoreFor,
			&s.ScoreAgainst,
			&s.ScoreDifference,
			&s.Rank,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", err)
		}
		standings = append(standings, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during standing rows iteration: %w", err)
	}
	return standings, nil
}

func (r *postgresGroupStandingRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM group_standings WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete standings for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresGroupStandingRepository) handleStandingError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "group_standings_participant_id_fkey":
			return ErrStandingParticipantInvalid
		}
	}
	return err
}
