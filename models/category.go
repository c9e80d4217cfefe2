package models

import "time"

// CategoryGender matches the category_gender ENUM in the database.
type CategoryGender string

const (
	CategoryGenderAny    CategoryGender = "any"
	CategoryGenderMale   CategoryGender = "male"
	CategoryGenderFemale CategoryGender = "female"
	CategoryGenderMixed  CategoryGender = "mixed"
)

// CategoryFormat matches the category_format ENUM in the database.
type CategoryFormat string

const (
	FormatSingles CategoryFormat = "singles"
	FormatDoubles CategoryFormat = "doubles"
)

// Category is a tournament sub-division with its own eligibility constraints
// and capacity. Capacity is read as a fixed ceiling for any given allocation
// attempt; authoring (and capacity changes) happen elsewhere.
type Category struct {
	ID              int            `json:"id" db:"id"`
	TournamentID    int            `json:"tournament_id" db:"tournament_id"`
	Name            string         `json:"name" db:"name"`
	MinAge          *int           `json:"min_age,omitempty" db:"min_age"`
	MaxAge          *int           `json:"max_age,omitempty" db:"max_age"`
	Gender          CategoryGender `json:"gender" db:"gender"`
	MinSkillLevel   *int           `json:"min_skill_level,omitempty" db:"min_skill_level"`
	MaxSkillLevel   *int           `json:"max_skill_level,omitempty" db:"max_skill_level"`
	Format          CategoryFormat `json:"format" db:"format"`
	MaxParticipants *int           `json:"max_participants,omitempty" db:"max_participants"`
	EntryFeeCents   *int64         `json:"entry_fee_cents,omitempty" db:"entry_fee_cents"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

func (c *Category) RequiresPartner() bool {
	return c.Format == FormatDoubles
}

func (c *Category) RequiresPayment() bool {
	return c.EntryFeeCents != nil && *c.EntryFeeCents > 0
}

func (c *Category) Unlimited() bool {
	return c.MaxParticipants == nil
}
