package handlers

import (
	"net/http"

	"github.com/Dosada05/federation-system/middleware"
	"github.com/Dosada05/federation-system/services"
)

type PlayerHandler struct {
	playerService *services.PlayerService
}

func NewPlayerHandler(playerService *services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

// SearchPartners handles GET /categories/{categoryID}/partners?query=.
func (h *PlayerHandler) SearchPartners(w http.ResponseWriter, r *http.Request) {
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

	query := r.URL.Query().Get("query")

	candidates, err := h.playerService.SearchPartnerCandidates(r.Context(), categoryID, callerID, query)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"candidates": candidates}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
