package services

import (
	"context"
	"fmt"

	"tempo/internal/database"
	"tempo/internal/logger"
)

// CategoryProvider отдает справочник категорий для подписей в отчетах.
type CategoryProvider interface {
	Categories(ctx context.Context) ([]database.Category, error)
}

type CategoryService struct {
	repository *database.Repository
	clock      Clock
	log        logger.Logger
}

func NewCategoryService(repo *database.Repository, clock Clock, log logger.Logger) *CategoryService {
	return &CategoryService{
		repository: repo,
		clock:      clock,
		log:        log,
	}
}

func (cs *CategoryService) Categories(ctx context.Context) ([]database.Category, error) {
	return cs.repository.GetCategories(ctx)
}

// SeedDefaults засевает стандартные категории, если справочник пуст.
func (cs *CategoryService) SeedDefaults(ctx context.Context) error {
	return seedCategories(ctx, cs.repository, cs.clock, cs.log)
}

func seedCategories(ctx context.Context, repo *database.Repository, clock Clock, log logger.Logger) error {
	count, err := repo.CountCategories(ctx)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := clock.Now()
	for _, c := range database.DefaultCategories {
		c.CreatedAt = now
		if err := repo.AddCategory(ctx, c); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
	}
	log.Infof("🏷 Созданы стандартные категории: %d", len(database.DefaultCategories))
	return nil
}

// categoryName: nil id is "Uncategorized", an id missing from the directory is "Unknown".
func categoryName(names map[string]string, id *string) string {
	if id == nil {
		return "Uncategorized"
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return "Unknown"
}

func categoryKey(id *string) string {
	if id == nil {
		return "uncategorized"
	}
	return *id
}

func categoryNames(categories []database.Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}
