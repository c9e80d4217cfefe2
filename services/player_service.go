package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
	"github.com/Dosada05/federation-system/storage"
)

// PlayerService serves player lookups for composing registration requests.
type PlayerService struct {
	players       repositories.PlayerRepository
	categories    repositories.CategoryRepository
	registrations repositories.RegistrationRepository
	uploader      storage.FileUploader
	logger        *slog.Logger
}

func NewPlayerService(
	players repositories.PlayerRepository,
	categories repositories.CategoryRepository,
	registrations repositories.RegistrationRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *PlayerService {
	return &PlayerService{
		players:       players,
		categories:    categories,
		registrations: registrations,
		uploader:      uploader,
		logger:        logger,
	}
}

// SearchPartnerCandidates returns a transient list of players matching the
// query who could be named as partner in the category right now: eligible
// under current rules and not already bound to an active registration there.
// The result is never persisted; submitting later may still fail if the
// candidate is claimed in the meantime.
func (s *PlayerService) SearchPartnerCandidates(ctx context.Context, categoryID, requesterID int, query string) ([]*models.PartnerCandidate, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	players, err := s.players.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	candidates := make([]*models.PartnerCandidate, 0, len(players))
	for _, player := range players {
		if player.ID == requesterID {
			continue
		}
		if err := EvaluateEligibility(category, player, now); err != nil {
			continue
		}

		_, err := s.registrations.FindActiveInvolving(ctx, categoryID, player.ID, 0)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, err
		}

		populatePlayerAvatarURL(player, s.uploader)
		candidates = append(candidates, &models.PartnerCandidate{
			PlayerID:   player.ID,
			Name:       player.FullName(),
			SkillLevel: player.SkillLevel,
			AvatarURL:  player.AvatarURL,
		})
	}
	return candidates, nil
}
