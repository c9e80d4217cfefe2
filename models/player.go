package models

import "time"

// PlayerGender matches the player_gender ENUM in the database.
type PlayerGender string

const (
	PlayerMale   PlayerGender = "male"
	PlayerFemale PlayerGender = "female"
)

// UserRole is carried in the JWT issued by the auth collaborator.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RolePlayer  UserRole = "player"
	RolePayment UserRole = "payment"
)

// Player is a read model supplied by the catalog collaborator.
type Player struct {
	ID         int          `json:"id" db:"id"`
	FirstName  string       `json:"first_name" db:"first_name"`
	LastName   string       `json:"last_name" db:"last_name"`
	Gender     PlayerGender `json:"gender" db:"gender"`
	BirthDate  time.Time    `json:"birth_date" db:"birth_date"`
	SkillLevel int          `json:"skill_level" db:"skill_level"`
	AvatarKey  *string      `json:"-" db:"avatar_key"`
	AvatarURL  *string      `json:"avatar_url,omitempty" db:"-"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// AgeAt returns the player's age in full years at the given instant.
// Age is always derived from the birth date, never cached, so an entry
// re-evaluated after a birthday may legitimately change admissibility.
func (p *Player) AgeAt(now time.Time) int {
	age := now.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	return age
}

func (p *Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PartnerCandidate is a transient projection used only to render partner
// search results while composing a doubles request. It carries no state.
type PartnerCandidate struct {
	PlayerID   int     `json:"player_id"`
	Name       string  `json:"name"`
	SkillLevel int     `json:"skill_level"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}
