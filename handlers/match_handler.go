package handlers

import (
	"net/http"

	"github.com/bracketforge/tournament-engine/services"
)

type MatchHandler struct {
	matchService  services.MatchService
	resultService services.ResultService
}

func NewMatchHandler(matchService services.MatchService, resultService services.ResultService) *MatchHandler {
	return &MatchHandler{
		matchService:  matchService,
		resultService: resultService,
	}
}

// Get handles GET /matches/{id}.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckIn handles POST /matches/{id}/check-in.
func (h *MatchHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		RegistrationID int `json:"registration_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CheckIn(r.Context(), id, input.RegistrationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start handles POST /matches/{id}/start.
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.StartMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResult handles POST /matches/{id}/results.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		SubmitterRegistrationID int `json:"submitter_registration_id"`
		WinnerRegistrationID    int `json:"winner_registration_id"`
		Score1                  int `json:"score1"`
		Score2                  int `json:"score2"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.resultService.SubmitResult(r.Context(), id, input.SubmitterRegistrationID, services.ResultClaim{
		WinnerRegistrationID: input.WinnerRegistrationID,
		Score1:               input.Score1,
		Score2:               input.Score2,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
