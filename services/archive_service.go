package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
	"github.com/Dosada05/federation-system/storage"
	"golang.org/x/sync/errgroup"
)

// ArchiveService exports audit snapshots of a category's registration ledger
// to object storage.
type ArchiveService struct {
	categories    repositories.CategoryRepository
	registrations repositories.RegistrationRepository
	history       repositories.StatusChangeRepository
	uploader      storage.FileUploader
	logger        *slog.Logger
}

func NewArchiveService(
	categories repositories.CategoryRepository,
	registrations repositories.RegistrationRepository,
	history repositories.StatusChangeRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *ArchiveService {
	return &ArchiveService{
		categories:    categories,
		registrations: registrations,
		history:       history,
		uploader:      uploader,
		logger:        logger,
	}
}

type categoryAuditSnapshot struct {
	Category      *models.Category       `json:"category"`
	GeneratedAt   time.Time              `json:"generated_at"`
	Registrations []*models.Registration `json:"registrations"`
	History       []*models.StatusChange `json:"history"`
}

// ExportCategoryAudit uploads a JSON snapshot of the category's registrations
// and full transition history and returns its public URL. Requires object
// storage to be configured.
func (s *ArchiveService) ExportCategoryAudit(ctx context.Context, categoryID int) (string, error) {
	if s.uploader == nil {
		return "", ErrAuditExportUnavailable
	}

	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return "", ErrCategoryNotFound
		}
		return "", err
	}

	snapshot := categoryAuditSnapshot{
		Category:    category,
		GeneratedAt: time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		regs, err := s.registrations.ListByCategory(gctx, categoryID, nil)
		if err != nil {
			return err
		}
		snapshot.Registrations = regs
		return nil
	})
	g.Go(func() error {
		changes, err := s.history.ListByCategory(gctx, categoryID)
		if err != nil {
			return err
		}
		snapshot.History = changes
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("failed to collect audit snapshot for category %d: %w", categoryID, err)
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit snapshot: %w", err)
	}

	key := fmt.Sprintf("audit/categories/%d/%s.json", categoryID, snapshot.GeneratedAt.Format("20060102T150405Z"))
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to upload audit snapshot: %w", err)
	}

	s.logger.Info("exported category audit snapshot",
		slog.Int("category_id", categoryID),
		slog.String("key", result.Key),
	)
	return result.Location, nil
}
