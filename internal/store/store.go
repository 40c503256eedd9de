package store

import (
	"context"
	"errors"

	"github.com/wardscope/wardscope/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the archive interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	SaveAnalysis(ctx context.Context, a *models.ReplayAnalysis) error
	GetAnalysis(ctx context.Context, matchID string) (*models.ReplayAnalysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]*models.ReplayAnalysis, error)
}
