package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchNumberConflict     = errors.New("match number already taken in this round")
	ErrMatchTournamentInvalid  = errors.New("match tournament conflict or invalid")
	ErrMatchParticipantInvalid = errors.New("match participant conflict or invalid")
	ErrMatchWinnerInvalid      = errors.New("match winner conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, stage *models.MatchStage, round *int) ([]*models.Match, error)
	UpdateScoreStatusWinner(ctx context.Context, exec SQLExecutor, id int, score *string, status models.MatchStatus, winnerID *int) error
	UpdateParticipants(ctx context.Context, exec SQLExecutor, id int, participant1ID, participant2ID *int) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot *int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, stage, group_label, round, match_number,
	participant1_id, participant2_id, winner_id, score, status,
	bracket_uid, next_match_id, winner_to_slot, match_time, created_at
	`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, stage, group_label, round, match_number,
			 participant1_id, participant2_id, winner_id, score, status,
			 bracket_uid, next_match_id, winner_to_slot, match_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.Stage,
		match.GroupLabel,
		match.Round,
		match.MatchNumber,
		match.Participant1ID,
		match.Participant2ID,
		match.WinnerID,
		match.Score,
		match.Status,
		match.BracketUID,
		match.NextMatchID,
		match.WinnerToSlot,
		match.MatchTime,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + `FROM matches WHERE id = $1`

	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.TournamentID,
		&match.Stage,
		&match.GroupLabel,
		&match.Round,
		&match.MatchNumber,
		&match.Participant1ID,
		&match.Participant2ID,
		&match.WinnerID,
		&match.Score,
		&match.Status,
		&match.BracketUID,
		&match.NextMatchID,
		&match.WinnerToSlot,
		&match.MatchTime,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, stage *models.MatchStage, round *int) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + `FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if stage != nil {
		queryBuilder.WriteString(" AND stage = $" + strconv.Itoa(len(args)+1))
		args = append(args, *stage)
	}
	if round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(len(args)+1))
		args = append(args, *round)
	}
	// group_label NULLS LAST keeps knockout matches after group play.
	queryBuilder.WriteString(" ORDER BY stage DESC, group_label ASC NULLS LAST, round ASC, match_number ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.ID,
			&m.TournamentID,
			&m.Stage,
			&m.GroupLabel,
			&m.Round,
			&m.MatchNumber,
			&m.Participant1ID,
			&m.Participant2ID,
			&m.WinnerID,
			&m.Score,
			&m.Status,
			&m.BracketUID,
			&m.NextMatchID,
			&m.WinnerToSlot,
			&m.MatchTime,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

// UpdateScoreStatusWinner refuses to touch a match that is already completed,
// so of two concurrent result submissions only the first matches a row. The
// loser observes ErrMatchNotFound.
func (r *postgresMatchRepository) UpdateScoreStatusWinner(ctx context.Context, exec SQLExecutor, id int, score *string, status models.MatchStatus, winnerID *int) error {
	query := `UPDATE matches SET score = $1, status = $2, winner_id = $3 WHERE id = $4 AND status <> 'completed'`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, score, status, winnerID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateParticipants(ctx context.Context, exec SQLExecutor, id int, participant1ID, participant2ID *int) error {
	query := `UPDATE matches SET participant1_id = $1, participant2_id = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, participant1ID, participant2ID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot *int) error {
	query := `UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextMatchID, winnerToSlot, id)
	if err != nil {
		return fmt.Errorf("failed to set next match info for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		// (tournament_id, stage, group_label, round, match_number) uniqueness:
		// one match per slot within any single bracket.
		case "matches_bracket_slot_key":
			return ErrMatchNumberConflict
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_participant1_id_fkey", "matches_participant2_id_fkey":
			return ErrMatchParticipantInvalid
		case "matches_winner_id_fkey":
			return ErrMatchWinnerInvalid
		}
	}
	return err
}
