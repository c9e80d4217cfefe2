package models

import "time"

// TournamentStatus matches the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCanceled  TournamentStatus = "canceled"
)

// Tournament is a read model owned by the catalog side of the platform.
// The registration core never mutates it.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	Name        string           `json:"name" db:"name"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	EndDate     time.Time        `json:"end_date" db:"end_date"`
	RegOpensAt  time.Time        `json:"reg_opens_at" db:"reg_opens_at"`
	RegClosesAt time.Time        `json:"reg_closes_at" db:"reg_closes_at"`
	Status      TournamentStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// RegistrationOpenAt reports whether a registration submitted at the given
// instant falls inside the tournament's registration window.
func (t *Tournament) RegistrationOpenAt(now time.Time) bool {
	if t.Status != TournamentUpcoming {
		return false
	}
	return !now.Before(t.RegOpensAt) && now.Before(t.RegClosesAt)
}
