package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bekzhan-dev/tournament-platform/brackets"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
	"github.com/bekzhan-dev/tournament-platform/storage"
)

const defaultListLimit = 20

type CreateTournamentInput struct {
	Name               string                  `json:"name"`
	Description        *string                 `json:"description,omitempty"`
	Format             models.TournamentFormat `json:"format"`
	RegDate            time.Time               `json:"reg_date"`
	StartDate          time.Time               `json:"start_date"`
	EndDate            time.Time               `json:"end_date"`
	MaxParticipants    int                     `json:"max_participants"`
	QualifiersPerGroup int                     `json:"qualifiers_per_group"`
}

type UpdateTournamentInput struct {
	Name               *string    `json:"name,omitempty"`
	Description        *string    `json:"description,omitempty"`
	RegDate            *time.Time `json:"reg_date,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	MaxParticipants    *int       `json:"max_participants,omitempty"`
	QualifiersPerGroup *int       `json:"qualifiers_per_group,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int, withDetails bool) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]*models.Tournament, error)
	Update(ctx context.Context, id, requesterID int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id, requesterID int, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, id, requesterID int) error
	UploadLogo(ctx context.Context, id, requesterID int, contentType string, file io.Reader) (*models.Tournament, error)
	AutoUpdateStatusesByDates(ctx context.Context, now time.Time) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	bracketService BracketService
	uploader       storage.FileUploader
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		bracketService: bracketService,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if err := validateTournamentDates(input.RegDate, input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	if input.MaxParticipants < MinParticipants || input.MaxParticipants > MaxParticipantsLimit {
		return nil, fmt.Errorf("%w: got %d, allowed %d..%d",
			ErrTournamentInvalidCapacity, input.MaxParticipants, MinParticipants, MaxParticipantsLimit)
	}

	switch input.Format {
	case models.FormatSingleElimination, models.FormatGroupStage:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, input.Format)
	}

	qualifiers := input.QualifiersPerGroup
	if qualifiers == 0 {
		qualifiers = models.DefaultQualifiersPerGroup
	}
	if qualifiers < 1 || qualifiers > 4 {
		return nil, fmt.Errorf("%w: got %d", ErrTournamentInvalidQualifiers, qualifiers)
	}

	tournament := &models.Tournament{
		Name:               input.Name,
		Description:        input.Description,
		Format:             input.Format,
		OrganizerID:        organizerID,
		RegDate:            input.RegDate,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
		Status:             models.StatusSoon,
		MaxParticipants:    input.MaxParticipants,
		QualifiersPerGroup: qualifiers,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		case errors.Is(err, repositories.ErrTournamentOrganizerInvalid):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(tournament.Format)),
		slog.Int("organizer_id", organizerID))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int, withDetails bool) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	s.populateLogoURL(tournament)

	if organizer, err := s.userRepo.GetByID(ctx, tournament.OrganizerID); err == nil {
		organizer.PasswordHash = ""
		tournament.Organizer = organizer
	}

	if withDetails {
		return s.bracketService.GetFullTournamentData(ctx, tournament)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	tournaments, err := s.tournamentRepo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, t := range tournaments {
		s.populateLogoURL(t)
	}
	return tournaments, nil
}

// Update edits tournament settings. Only the organizer may edit, and only
// before play has started.
func (s *tournamentService) Update(ctx context.Context, id, requesterID int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.StatusActive || tournament.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: tournament is %s", ErrTournamentInvalidStatusTransition, tournament.Status)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.RegDate != nil {
		tournament.RegDate = *input.RegDate
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if err := validateTournamentDates(tournament.RegDate, tournament.StartDate, tournament.EndDate); err != nil {
		return nil, err
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants < MinParticipants || *input.MaxParticipants > MaxParticipantsLimit {
			return nil, fmt.Errorf("%w: got %d, allowed %d..%d",
				ErrTournamentInvalidCapacity, *input.MaxParticipants, MinParticipants, MaxParticipantsLimit)
		}
		tournament.MaxParticipants = *input.MaxParticipants
	}
	if input.QualifiersPerGroup != nil {
		if *input.QualifiersPerGroup < 1 || *input.QualifiersPerGroup > 4 {
			return nil, fmt.Errorf("%w: got %d", ErrTournamentInvalidQualifiers, *input.QualifiersPerGroup)
		}
		tournament.QualifiersPerGroup = *input.QualifiersPerGroup
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

// UpdateStatus moves the tournament through its lifecycle. The move to active
// is the moment the bracket is generated; if generation fails the status is
// left untouched.
func (s *tournamentService) UpdateStatus(ctx context.Context, id, requesterID int, status models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, tournament, status)
}

func (s *tournamentService) transition(ctx context.Context, tournament *models.Tournament, status models.TournamentStatus) (*models.Tournament, error) {
	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}
	if tournament.Status == status {
		return tournament, nil
	}

	if status == models.StatusActive {
		if _, err := s.bracketService.GenerateAndSaveBracket(ctx, tournament); err != nil {
			return nil, err
		}
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update status for tournament %d: %w", tournament.ID, err)
	}
	tournament.Status = status

	s.logger.InfoContext(ctx, "tournament status changed",
		slog.Int("tournament_id", tournament.ID),
		slog.String("status", string(status)))

	s.hub.BroadcastToRoom(brackets.TournamentRoom(tournament.ID), brackets.WebSocketMessage{
		Type:    brackets.EventTournamentStatus,
		Payload: map[string]interface{}{"tournament_id": tournament.ID, "status": status},
		RoomID:  brackets.TournamentRoom(tournament.ID),
	})

	if status == models.StatusActive {
		s.hub.BroadcastToRoom(brackets.TournamentRoom(tournament.ID), brackets.WebSocketMessage{
			Type:    brackets.EventBracketGenerated,
			Payload: map[string]interface{}{"tournament_id": tournament.ID},
			RoomID:  brackets.TournamentRoom(tournament.ID),
		})
	}
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id, requesterID int) error {
	if _, err := s.getOwned(ctx, id, requesterID); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return nil
}

// UploadLogo stores the image under a stable per-tournament key, so a re-upload
// overwrites the previous logo. A leftover object with a different extension is
// removed best effort.
func (s *tournamentService) UploadLogo(ctx context.Context, id, requesterID int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("tournaments/%d/logo%s", id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload logo for tournament %d: %w", id, err)
	}

	if tournament.LogoKey != nil && *tournament.LogoKey != key {
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous logo",
				slog.String("key", *tournament.LogoKey), slog.Any("error", err))
		}
	}

	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("failed to store logo key for tournament %d: %w", id, err)
	}
	tournament.LogoKey = &key
	s.populateLogoURL(tournament)
	return tournament, nil
}

// AutoUpdateStatusesByDates advances every tournament whose dates have crossed
// the boundary of its current status. Called from the scheduler; failures on
// one tournament do not stop the rest.
func (s *tournamentService) AutoUpdateStatusesByDates(ctx context.Context, now time.Time) error {
	due, err := s.tournamentRepo.ListDueForStatusUpdate(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list tournaments due for status update: %w", err)
	}

	for _, tournament := range due {
		var next models.TournamentStatus
		switch tournament.Status {
		case models.StatusSoon:
			next = models.StatusRegistration
		case models.StatusRegistration:
			next = models.StatusActive
		case models.StatusActive:
			next = models.StatusCompleted
		default:
			continue
		}

		if _, err := s.transition(ctx, tournament, next); err != nil {
			s.logger.ErrorContext(ctx, "scheduled status update failed",
				slog.Int("tournament_id", tournament.ID),
				slog.String("from", string(tournament.Status)),
				slog.String("to", string(next)),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) getOwned(ctx context.Context, id, requesterID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	if tournament.OrganizerID != requesterID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*t.LogoKey)
	t.LogoURL = &url
}
