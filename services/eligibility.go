package services

import (
	"fmt"
	"time"

	"github.com/Dosada05/federation-system/models"
)

// EvaluateEligibility decides whether a player is admissible to a category.
// It is a pure function of its inputs: no state, no side effects. Age is
// derived from the birth date at evaluation time, which is why the same
// (category, player) pair may legitimately flip after a birthday — promotion
// relies on exactly this re-check.
func EvaluateEligibility(category *models.Category, player *models.Player, now time.Time) error {
	age := player.AgeAt(now)
	if category.MinAge != nil && age < *category.MinAge {
		return fmt.Errorf("%w: age %d below minimum %d", ErrEligibilityFailed, age, *category.MinAge)
	}
	if category.MaxAge != nil && age > *category.MaxAge {
		return fmt.Errorf("%w: age %d above maximum %d", ErrEligibilityFailed, age, *category.MaxAge)
	}

	switch category.Gender {
	case models.CategoryGenderAny, models.CategoryGenderMixed:
		// open to everyone; mixed pairing composition is the organizer's call
	case models.CategoryGenderMale:
		if player.Gender != models.PlayerMale {
			return fmt.Errorf("%w: category is restricted to male players", ErrEligibilityFailed)
		}
	case models.CategoryGenderFemale:
		if player.Gender != models.PlayerFemale {
			return fmt.Errorf("%w: category is restricted to female players", ErrEligibilityFailed)
		}
	default:
		return fmt.Errorf("%w: unknown category gender %q", ErrEligibilityFailed, category.Gender)
	}

	if category.MinSkillLevel != nil && player.SkillLevel < *category.MinSkillLevel {
		return fmt.Errorf("%w: skill level %d below minimum %d", ErrEligibilityFailed, player.SkillLevel, *category.MinSkillLevel)
	}
	if category.MaxSkillLevel != nil && player.SkillLevel > *category.MaxSkillLevel {
		return fmt.Errorf("%w: skill level %d above maximum %d", ErrEligibilityFailed, player.SkillLevel, *category.MaxSkillLevel)
	}

	return nil
}
