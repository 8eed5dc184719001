// Package newsfs provides a file-based news evidence source: one JSON file
// per subject, dropped off by the external news collector.
package newsfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dkallio/sentinel/internal/common"
	"github.com/dkallio/sentinel/internal/interfaces"
	"github.com/dkallio/sentinel/internal/models"
	"github.com/dkallio/sentinel/internal/storage"
)

// Store reads news evidence from <basePath>/<subject>.json
type Store struct {
	basePath string
	logger   *common.Logger
}

// NewStore creates a news store rooted at basePath
func NewStore(basePath string, logger *common.Logger) (*Store, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create news directory %s: %w", basePath, err)
	}

	return &Store{
		basePath: basePath,
		logger:   logger,
	}, nil
}

// GetNews returns up to limit evidence items for a subject, newest first.
// A missing file yields an empty slice, not an error.
func (s *Store) GetNews(ctx context.Context, subject string, limit int) ([]models.News, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.basePath, storage.SanitizeKey(subject)+".json")

	var items []models.News
	if err := storage.ReadJSON(path, &items); err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("subject", subject).Msg("No news file for subject")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read news for %s: %w", subject, err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// SaveNews writes evidence items for a subject (used by tests and importers)
func (s *Store) SaveNews(ctx context.Context, subject string, items []models.News) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.basePath, storage.SanitizeKey(subject)+".json")
	return storage.WriteJSONAtomic(path, items)
}

// Ensure Store implements NewsSource
var _ interfaces.NewsSource = (*Store)(nil)
