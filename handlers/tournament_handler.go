package handlers

import (
	"net/http"
	"strconv"

	"github.com/bracketforge/tournament-engine/middleware"
	"github.com/bracketforge/tournament-engine/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	bracketService    services.BracketService
}

func NewTournamentHandler(tournamentService services.TournamentService, bracketService services.BracketService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		bracketService:    bracketService,
	}
}

// Create handles POST /tournaments.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetOrganizerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.OrganizerID = organizerID

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get handles GET /tournaments/{id}.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List handles GET /tournaments.
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTransitions handles GET /tournaments/{id}/transitions.
func (h *TournamentHandler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	transitions, err := h.tournamentService.ListTransitions(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"transitions": transitions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterParticipant handles POST /tournaments/{id}/registrations.
func (h *TournamentHandler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		UserID *int `json:"user_id,omitempty"`
		TeamID *int `json:"team_id,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.tournamentService.RegisterParticipant(r.Context(), id, input.UserID, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// statusAction wraps the simple organizer-driven transitions.
func (h *TournamentHandler) statusAction(action func(r *http.Request, tournamentID int, actor string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := middleware.GetOrganizerIDFromContext(r.Context())
		if err != nil {
			unauthorizedResponse(w, r, err.Error())
			return
		}
		id, err := readIDParam(r, "id")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		if err := action(r, id, services.ActorOrganizer(organizerID)); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		tournament, err := h.tournamentService.GetTournament(r.Context(), id)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}

// Publish handles POST /tournaments/{id}/publish.
func (h *TournamentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.statusAction(func(r *http.Request, id int, actor string) error {
		return h.tournamentService.Publish(r.Context(), id, actor)
	})(w, r)
}

// OpenRegistration handles POST /tournaments/{id}/open-registration.
func (h *TournamentHandler) OpenRegistration(w http.ResponseWriter, r *http.Request) {
	h.statusAction(func(r *http.Request, id int, actor string) error {
		return h.tournamentService.OpenRegistration(r.Context(), id, actor)
	})(w, r)
}

// StartCheckIn handles POST /tournaments/{id}/start-check-in.
func (h *TournamentHandler) StartCheckIn(w http.ResponseWriter, r *http.Request) {
	h.statusAction(func(r *http.Request, id int, actor string) error {
		return h.tournamentService.StartCheckIn(r.Context(), id, actor)
	})(w, r)
}

// GoLive handles POST /tournaments/{id}/go-live.
func (h *TournamentHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	h.statusAction(func(r *http.Request, id int, actor string) error {
		return h.tournamentService.GoLive(r.Context(), id, actor)
	})(w, r)
}

// Archive handles POST /tournaments/{id}/archive.
func (h *TournamentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.statusAction(func(r *http.Request, id int, actor string) error {
		return h.tournamentService.Archive(r.Context(), id, actor)
	})(w, r)
}

// CloseRegistration handles POST /tournaments/{id}/close-registration.
// On success the generated bracket is returned alongside the
// tournament.
func (h *TournamentHandler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetOrganizerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.tournamentService.CloseRegistration(r.Context(), id, services.ActorOrganizer(organizerID))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Cancel handles POST /tournaments/{id}/cancel.
func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetOrganizerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Cancel(r.Context(), id, services.ActorOrganizer(organizerID), input.Reason); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "cancelled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket handles GET /tournaments/{id}/bracket.
func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	snapshot, err := h.bracketService.GetSnapshot(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, snapshot, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetStandings handles GET /tournaments/{id}/standings.
func (h *TournamentHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	standings, err := h.tournamentService.GetStandings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
