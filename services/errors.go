package services

import "errors"

// Shared sentinel errors, mapped to HTTP responses in the handlers layer.
var (
	// Not found
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrRegistrationNotFound = errors.New("registration not found")

	// Validation / business rules — surfaced immediately, no state mutated.
	ErrEligibilityFailed        = errors.New("player is not eligible for this category")
	ErrSelfPartner              = errors.New("partner must be a different player")
	ErrPartnerRequired          = errors.New("doubles category requires a partner")
	ErrPartnerNotAllowed        = errors.New("singles category does not take a partner")
	ErrPartnerIneligible        = errors.New("partner is not eligible for this category")
	ErrPartnerAlreadyRegistered = errors.New("partner is already registered in this category")
	ErrDuplicateRegistration    = errors.New("player already holds a registration in this category")
	ErrInvalidPaymentStatus     = errors.New("invalid payment status")

	// Hard rejections — the category or window is closed, never waitlisted.
	ErrTournamentNotOpen = errors.New("tournament registration is not open")
	ErrCategoryClosed    = errors.New("category registration window closed")

	// Authorization
	ErrWithdrawForbidden  = errors.New("only the requester or an admin may withdraw a registration")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ledger transition errors — an illegal transition is a programming or
	// integration defect, never silently ignored.
	ErrInvalidTransition = errors.New("invalid registration status transition")

	// Transient concurrency conflicts after internal retries are exhausted.
	// Distinct from validation errors; the client may retry.
	ErrTransientConflict = errors.New("temporary conflict, please retry")

	ErrCategoryTournamentMismatch = errors.New("category does not belong to this tournament")

	ErrAuditExportUnavailable = errors.New("audit export storage is not configured")
)
