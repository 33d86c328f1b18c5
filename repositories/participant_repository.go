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
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant is already registered for this tournament")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
	ErrParticipantSeedConflict      = errors.New("participant seed already taken in this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error)
	UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error
	UpdateSeeds(ctx context.Context, exec SQLExecutor, tournamentID int, seedsByID map[int]int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id, name, seed, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		participant.TournamentID,
		participant.UserID,
		participant.Name,
		participant.Seed,
		participant.Status,
	).Scan(&participant.ID, &participant.CreatedAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, name, seed, status, created_at
		FROM participants
		WHERE id = $1`

	participant := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&participant.ID,
		&participant.TournamentID,
		&participant.UserID,
		&participant.Name,
		&participant.Seed,
		&participant.Status,
		&participant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant by id %d: %w", id, err)
	}
	return participant, nil
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, name, seed, status, created_at
		FROM participants
		WHERE user_id = $1 AND tournament_id = $2`

	participant := &models.Participant{}
	err := r.db.QueryRowContext(ctx, query, userID, tournamentID).Scan(
		&participant.ID,
		&participant.TournamentID,
		&participant.UserID,
		&participant.Name,
		&participant.Seed,
		&participant.Status,
		&participant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find participant for user %d in tournament %d: %w", userID, tournamentID, err)
	}
	return participant, nil
}

// ListByTournament returns participants ordered by seed ascending, which is
// the order the bracket generators expect.
func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, tournament_id, user_id, name, seed, status, created_at
		FROM participants
		WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY seed ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(
			&p.ID,
			&p.TournamentID,
			&p.UserID,
			&p.Name,
			&p.Seed,
			&p.Status,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE participants SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participant %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

// UpdateSeeds rewrites the seed column for a whole tournament in one
// transaction. Seeds are first pushed out of the way to avoid tripping the
// per-tournament uniqueness constraint mid-update.
func (r *postgresParticipantRepository) UpdateSeeds(ctx context.Context, exec SQLExecutor, tournamentID int, seedsByID map[int]int) error {
	executor := exec
	if executor == nil {
		executor = r.db
	}

	if _, err := executor.ExecContext(ctx,
		`UPDATE participants SET seed = seed + $1 WHERE tournament_id = $2`,
		len(seedsByID), tournamentID,
	); err != nil {
		return fmt.Errorf("failed to shift seeds for tournament %d: %w", tournamentID, err)
	}

	for id, seed := range seedsByID {
		result, err := executor.ExecContext(ctx,
			`UPDATE participants SET seed = $1 WHERE id = $2 AND tournament_id = $3`,
			seed, id, tournamentID,
		)
		if err != nil {
			return r.handleParticipantError(err)
		}
		if err := checkAffectedRows(result, ErrParticipantNotFound); err != nil {
			return fmt.Errorf("failed to set seed for participant %d: %w", id, err)
		}
	}
	return nil
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "participants_tournament_id_user_id_key":
			return ErrParticipantConflict
		case "participants_tournament_id_seed_key":
			return ErrParticipantSeedConflict
		case "participants_tournament_id_fkey":
			return ErrParticipantTournamentInvalid
		}
	}
	return err
}
