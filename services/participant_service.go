package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
)

const (
	// MinParticipants is the smallest field a bracket can be generated for.
	MinParticipants = 2
	// MaxParticipantsLimit caps tournament capacity regardless of what the
	// organizer asks for.
	MaxParticipantsLimit = 1024
)

type ParticipantService interface {
	Register(ctx context.Context, tournamentID, userID int, name string) (*models.Participant, error)
	GetByID(ctx context.Context, participantID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error)
	UpdateStatus(ctx context.Context, participantID int, status models.ParticipantStatus) (*models.Participant, error)
	AssignRandomSeeds(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	SetSeeds(ctx context.Context, tournamentID int, seedsByID map[int]int) ([]*models.Participant, error)
	Withdraw(ctx context.Context, participantID, userID int) error
}

type participantService struct {
	db              *sql.DB
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewParticipantService(
	db *sql.DB,
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		db:              db,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

// Register signs a user up for a tournament. Registration must be open, the
// field must have room, and a user may hold only one entry per tournament.
// The new entry takes a seed above every existing one, so withdrawals never
// make the next registration collide with a seed still in use.
func (s *participantService) Register(ctx context.Context, tournamentID, userID int, name string) (*models.Participant, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationNotOpen
	}

	existing, err := s.participantRepo.FindByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, ErrRegistrationConflict
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	if len(participants) >= tournament.MaxParticipants {
		return nil, ErrTournamentFull
	}
	nextSeed := 1
	for _, p := range participants {
		if p.Seed >= nextSeed {
			nextSeed = p.Seed + 1
		}
	}

	if name == "" {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		name = user.Nickname
	}

	participant := &models.Participant{
		TournamentID: tournamentID,
		UserID:       &userID,
		Name:         name,
		Seed:         nextSeed,
		Status:       models.ParticipantConfirmed,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrParticipantSeedConflict):
			return nil, ErrParticipantSeedConflict
		case errors.Is(err, repositories.ErrParticipantTournamentInvalid):
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}

	s.logger.InfoContext(ctx, "participant registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participant_id", participant.ID),
		slog.Int("seed", participant.Seed))
	return participant, nil
}

func (s *participantService) GetByID(ctx context.Context, participantID int) (*models.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to load participant %d: %w", participantID, err)
	}
	return participant, nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	return participants, nil
}

func (s *participantService) UpdateStatus(ctx context.Context, participantID int, status models.ParticipantStatus) (*models.Participant, error) {
	participant, err := s.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if err := s.participantRepo.UpdateStatus(ctx, participantID, status); err != nil {
		return nil, fmt.Errorf("failed to update participant %d status: %w", participantID, err)
	}
	participant.Status = status
	return participant, nil
}

// AssignRandomSeeds shuffles the field and rewrites seeds 1..N in one
// transaction. Only usable before the bracket exists, i.e. while the
// tournament is still in registration.
func (s *participantService) AssignRandomSeeds(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	if len(participants) == 0 {
		return participants, nil
	}

	order := rand.Perm(len(participants))
	seedsByID := make(map[int]int, len(participants))
	for i, p := range participants {
		seedsByID[p.ID] = order[i] + 1
	}

	if err := s.applySeeds(ctx, tournamentID, seedsByID); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "random seeds assigned",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participants", len(participants)))
	return s.participantRepo.ListByTournament(ctx, tournamentID, nil)
}

// SetSeeds applies an explicit seeding. The map must cover the whole field and
// its values must form a dense 1..N permutation.
func (s *participantService) SetSeeds(ctx context.Context, tournamentID int, seedsByID map[int]int) ([]*models.Participant, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	if len(seedsByID) != len(participants) {
		return nil, fmt.Errorf("%w: got %d seeds for %d participants", ErrSeedsNotDense, len(seedsByID), len(participants))
	}

	seen := make(map[int]bool, len(seedsByID))
	for id, seed := range seedsByID {
		if seed < 1 || seed > len(participants) || seen[seed] {
			return nil, fmt.Errorf("%w: seed %d for participant %d", ErrSeedsNotDense, seed, id)
		}
		seen[seed] = true
	}
	for _, p := range participants {
		if _, ok := seedsByID[p.ID]; !ok {
			return nil, fmt.Errorf("%w: participant %d has no seed", ErrSeedsNotDense, p.ID)
		}
	}

	if err := s.applySeeds(ctx, tournamentID, seedsByID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByTournament(ctx, tournamentID, nil)
}

func (s *participantService) applySeeds(ctx context.Context, tournamentID int, seedsByID map[int]int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.participantRepo.UpdateSeeds(ctx, tx, tournamentID, seedsByID); err != nil {
		return fmt.Errorf("failed to rewrite seeds for tournament %d: %w", tournamentID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seeds for tournament %d: %w", tournamentID, err)
	}
	return nil
}

// Withdraw removes the caller's own entry while registration is open.
func (s *participantService) Withdraw(ctx context.Context, participantID, userID int) error {
	participant, err := s.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if participant.UserID == nil || *participant.UserID != userID {
		return ErrForbiddenOperation
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, participant.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %d: %w", participant.TournamentID, err)
	}
	if tournament.Status != models.StatusRegistration {
		return ErrRegistrationNotOpen
	}

	if err := s.participantRepo.Delete(ctx, participantID); err != nil {
		return fmt.Errorf("failed to delete participant %d: %w", participantID, err)
	}
	return nil
}
