package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bekzhan-dev/tournament-platform/middleware"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/services"
)

type MatchHandler struct {
	matchService      services.MatchService
	tournamentService services.TournamentService
}

func NewMatchHandler(matchService services.MatchService, tournamentService services.TournamentService) *MatchHandler {
	return &MatchHandler{
		matchService:      matchService,
		tournamentService: tournamentService,
	}
}

// ListByTournament godoc
// @Summary List matches of a tournament in bracket order
// @Tags matches
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param stage query string false "Filter by stage (group or knockout)"
// @Param round query int false "Filter by round"
// @Success 200 {array} models.Match
// @Router /tournaments/{tournamentID}/matches [get]
func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var stage *models.MatchStage
	if raw := r.URL.Query().Get("stage"); raw != "" {
		s := models.MatchStage(raw)
		switch s {
		case models.StageGroup, models.StageKnockout:
			stage = &s
		default:
			badRequestResponse(w, r, errors.New("invalid stage filter"))
			return
		}
	}

	var round *int
	if raw := r.URL.Query().Get("round"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			badRequestResponse(w, r, errors.New("invalid round filter"))
			return
		}
		round = &value
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, stage, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResult godoc
// @Summary Record a match result and advance the winner
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param input body services.SubmitResultInput true "Result"
// @Success 200 {object} models.Match
// @Security BearerAuth
// @Router /matches/{matchID}/result [post]
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.SubmitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerID < 1 {
		badRequestResponse(w, r, errors.New("winner_id is required"))
		return
	}

	// Only the organizer of the tournament may report results.
	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	tournament, err := h.tournamentService.GetByID(r.Context(), match.TournamentID, false)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if tournament.OrganizerID != requesterID {
		forbiddenResponse(w, r, services.ErrForbiddenOperation.Error())
		return
	}

	updated, err := h.matchService.SubmitResult(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
