package services

import "errors"

// Shared errors used across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules.
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrTournamentNameRequired  = errors.New("tournament name is required")
	ErrRegistrationNotOpen     = errors.New("tournament registration is not open")
	ErrTournamentFull          = errors.New("tournament registration is full")
	ErrNotEnoughParticipants   = errors.New("not enough participants")
	ErrSeedsNotDense           = errors.New("seeds must form a dense 1..N permutation")
	ErrGroupStageIncomplete    = errors.New("group stage is not finished yet")
	ErrKnockoutSizeMismatch    = errors.New("qualifier count does not match the knockout bracket size")
	ErrUnsupportedFormat       = errors.New("unsupported tournament format")
	ErrMatchAlreadyCompleted   = errors.New("match result has already been recorded")
	ErrWinnerNotInMatch        = errors.New("winner must be one of the match participants")
	ErrMatchMissingParticipant = errors.New("match participants are not assigned yet")

	// Conflicts.
	ErrUserEmailConflict       = errors.New("email address is already in use")
	ErrUserNicknameConflict    = errors.New("nickname is already in use")
	ErrRegistrationConflict    = errors.New("participant is already registered for this tournament")
	ErrParticipantSeedConflict = errors.New("seed is already taken in this tournament")
	ErrTournamentNameConflict  = errors.New("tournament name already exists")

	// Authentication and authorization.
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Entity-specific lookups.
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMatchNotFound       = errors.New("match not found")

	// Tournament lifecycle.
	ErrTournamentDatesRequired           = errors.New("tournament dates are required")
	ErrTournamentInvalidRegDate          = errors.New("tournament registration date must not be after start date")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidQualifiers       = errors.New("qualifiers per group must be between 1 and 4")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
