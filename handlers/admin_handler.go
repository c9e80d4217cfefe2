package handlers

import (
	"net/http"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/services"
)

type AdminHandler struct {
	registrationService *services.RegistrationService
	archiveService      *services.ArchiveService
}

func NewAdminHandler(registrationService *services.RegistrationService, archiveService *services.ArchiveService) *AdminHandler {
	return &AdminHandler{
		registrationService: registrationService,
		archiveService:      archiveService,
	}
}

// ListCategoryRegistrations handles GET /categories/{categoryID}/registrations.
// Accepts an optional ?status= filter.
func (h *AdminHandler) ListCategoryRegistrations(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var statusFilter *models.RegistrationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.RegistrationStatus(raw)
		switch status {
		case models.RegistrationRegistered, models.RegistrationConfirmed,
			models.RegistrationWaitlisted, models.RegistrationWithdrawn:
			statusFilter = &status
		default:
			unprocessableResponse(w, r, "unknown status filter")
			return
		}
	}

	registrations, err := h.registrationService.ListCategoryRegistrations(r.Context(), categoryID, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportAudit handles POST /categories/{categoryID}/audit-export.
func (h *AdminHandler) ExportAudit(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	location, err := h.archiveService.ExportCategoryAudit(r.Context(), categoryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"export_url": location}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
