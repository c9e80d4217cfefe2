package models

import "time"

// RegistrationStatus matches the registration_status ENUM in the database.
// withdrawn is terminal; no state re-enters from it.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationConfirmed  RegistrationStatus = "confirmed"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationWithdrawn  RegistrationStatus = "withdrawn"
)

// CountsTowardCapacity reports whether a registration in this status occupies
// a counted capacity slot.
func (s RegistrationStatus) CountsTowardCapacity() bool {
	return s == RegistrationRegistered || s == RegistrationConfirmed
}

// PaymentStatus matches the payment_status ENUM in the database.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Registration is the durable record of one claimant (a player, or a bound
// pair for doubles) in one category. Rows are never deleted; withdrawal is a
// status transition so the waitlist history stays auditable.
type Registration struct {
	ID              int                `json:"id" db:"id"`
	TournamentID    int                `json:"tournament_id" db:"tournament_id"`
	CategoryID      int                `json:"category_id" db:"category_id"`
	PlayerID        int                `json:"player_id" db:"player_id"`
	PartnerID       *int               `json:"partner_id,omitempty" db:"partner_id"`
	Status          RegistrationStatus `json:"status" db:"status"`
	PaymentStatus   PaymentStatus      `json:"payment_status" db:"payment_status"`
	AmountPaidCents *int64             `json:"amount_paid_cents,omitempty" db:"amount_paid_cents"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`

	// Optional nested entities, populated for detail views.
	Player  *Player `json:"player,omitempty" db:"-"`
	Partner *Player `json:"partner,omitempty" db:"-"`
}

// Involves reports whether the given player appears in this registration,
// as requester or as bound partner.
func (r *Registration) Involves(playerID int) bool {
	if r.PlayerID == playerID {
		return true
	}
	return r.PartnerID != nil && *r.PartnerID == playerID
}

// StatusChange is one append-only row of the registration ledger's
// transition history. FromStatus is nil for the creation entry.
type StatusChange struct {
	ID             int64               `json:"id" db:"id"`
	RegistrationID int                 `json:"registration_id" db:"registration_id"`
	FromStatus     *RegistrationStatus `json:"from_status,omitempty" db:"from_status"`
	ToStatus       RegistrationStatus  `json:"to_status" db:"to_status"`
	RecordedAt     time.Time           `json:"recorded_at" db:"recorded_at"`
}

// Occupancy is the read-only view of a category's slot usage.
// Capacity is nil for unlimited categories.
type Occupancy struct {
	CategoryID int  `json:"category_id"`
	Confirmed  int  `json:"confirmed"`
	Capacity   *int `json:"capacity"`
	Waitlist   int  `json:"waitlist"`
}
