package handlers

import (
	"errors"
	"net/http"

	"github.com/bekzhan-dev/tournament-platform/middleware"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
	tournamentService  services.TournamentService
}

func NewParticipantHandler(participantService services.ParticipantService, tournamentService services.TournamentService) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		tournamentService:  tournamentService,
	}
}

// Register godoc
// @Summary Register the current user for a tournament
// @Tags participants
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 201 {object} models.Participant
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/participants [post]
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		Name string `json:"name,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	participant, err := h.participantService.Register(r.Context(), tournamentID, userID, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary List tournament participants ordered by seed
// @Tags participants
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param status query string false "Filter by participant status"
// @Success 200 {array} models.Participant
// @Router /tournaments/{tournamentID}/participants [get]
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.ParticipantStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.ParticipantStatus(raw)
		switch s {
		case models.ParticipantPending, models.ParticipantConfirmed, models.ParticipantWithdrawn:
			status = &s
		default:
			badRequestResponse(w, r, errors.New("invalid participant status filter"))
			return
		}
	}

	participants, err := h.participantService.ListByTournament(r.Context(), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Withdraw removes the caller's own registration.
func (h *ParticipantHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	participantID, err := urlParamInt(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.participantService.Withdraw(r.Context(), participantID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShuffleSeeds assigns a fresh random seeding. Organizer only, and only
// meaningful before the bracket is generated.
func (h *ParticipantHandler) ShuffleSeeds(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if ok := h.requireOrganizer(w, r, tournamentID); !ok {
		return
	}

	participants, err := h.participantService.AssignRandomSeeds(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetSeeds applies an explicit seeding map of participant id to seed.
func (h *ParticipantHandler) SetSeeds(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if ok := h.requireOrganizer(w, r, tournamentID); !ok {
		return
	}

	var input struct {
		Seeds map[int]int `json:"seeds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.Seeds) == 0 {
		badRequestResponse(w, r, errors.New("seeds map is required"))
		return
	}

	participants, err := h.participantService.SetSeeds(r.Context(), tournamentID, input.Seeds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ParticipantHandler) requireOrganizer(w http.ResponseWriter, r *http.Request, tournamentID int) bool {
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return false
	}
	tournament, err := h.tournamentService.GetByID(r.Context(), tournamentID, false)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return false
	}
	if tournament.OrganizerID != requesterID {
		forbiddenResponse(w, r, services.ErrForbiddenOperation.Error())
		return false
	}
	return true
}
