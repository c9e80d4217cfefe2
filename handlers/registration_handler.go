package handlers

import (
	"net/http"

	"github.com/Dosada05/federation-system/middleware"
	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

type submitRegistrationRequest struct {
	PlayerID  int  `json:"player_id"`
	PartnerID *int `json:"partner_id,omitempty"`
}

// Submit handles POST /tournaments/{tournamentID}/categories/{categoryID}/registrations.
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	callerRole, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input submitRegistrationRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID := input.PlayerID
	if playerID == 0 {
		playerID = callerID
	}

	reg, err := h.registrationService.SubmitRegistration(r.Context(), services.SubmitRegistrationInput{
		TournamentID: tournamentID,
		CategoryID:   categoryID,
		PlayerID:     playerID,
		PartnerID:    input.PartnerID,
		CallerID:     callerID,
		CallerRole:   callerRole,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusCreated
	if reg.Status == models.RegistrationWaitlisted {
		// Accepted onto the waitlist, not into the draw.
		status = http.StatusAccepted
	}
	if err := writeJSON(w, status, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Withdraw handles DELETE /registrations/{registrationID}.
func (h *RegistrationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	registrationID, err := urlParamInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	callerRole, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.registrationService.WithdrawRegistration(r.Context(), registrationID, callerID, callerRole); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /registrations/{registrationID}.
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	registrationID, err := urlParamInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	callerRole, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	reg, err := h.registrationService.GetRegistration(r.Context(), registrationID, callerID, callerRole)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// History handles GET /registrations/{registrationID}/history.
func (h *RegistrationHandler) History(w http.ResponseWriter, r *http.Request) {
	registrationID, err := urlParamInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	callerRole, err := middleware.GetUserRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	history, err := h.registrationService.RegistrationHistory(r.Context(), registrationID, callerID, callerRole)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CategoryOccupancy handles GET /categories/{categoryID}/occupancy.
func (h *RegistrationHandler) CategoryOccupancy(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	occ, err := h.registrationService.GetCategoryOccupancy(r.Context(), categoryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"occupancy": occ}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TournamentOccupancy handles GET /tournaments/{tournamentID}/occupancy.
func (h *RegistrationHandler) TournamentOccupancy(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	occupancies, err := h.registrationService.GetTournamentOccupancy(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"occupancies": occupancies}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type recordPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

// RecordPayment handles POST /payments/registrations/{registrationID}.
func (h *RegistrationHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	registrationID, err := urlParamInt(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input recordPaymentRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.RecordPayment(r.Context(), registrationID, input.AmountCents, models.PaymentStatus(input.Status))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
