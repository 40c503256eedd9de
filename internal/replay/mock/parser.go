package mock

import (
	"context"
	"sync"

	"github.com/wardscope/wardscope/internal/replay"
	"github.com/wardscope/wardscope/pkg/models"
)

// Parser satisfies replay.Parser for testing.
type Parser struct {
	ParseFunc func(ctx context.Context, path string) (models.StatsTable, error)

	mu    sync.Mutex
	paths []string
}

func (p *Parser) Parse(ctx context.Context, path string) (models.StatsTable, error) {
	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()

	if p.ParseFunc != nil {
		return p.ParseFunc(ctx, path)
	}
	return models.StatsTable{}, nil
}

// Paths returns every path Parse was called with, in call order.
func (p *Parser) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

// NewStaticParser returns a Parser that always yields table.
func NewStaticParser(table models.StatsTable) *Parser {
	return &Parser{
		ParseFunc: func(_ context.Context, _ string) (models.StatsTable, error) {
			return table, nil
		},
	}
}

// NewFailingParser returns a Parser that always returns err.
func NewFailingParser(err error) *Parser {
	return &Parser{
		ParseFunc: func(_ context.Context, _ string) (models.StatsTable, error) {
			return models.StatsTable{}, err
		},
	}
}

// NewBlockingParser returns a Parser that blocks until release is closed or the
// context is cancelled, then yields table.
func NewBlockingParser(release <-chan struct{}, table models.StatsTable) *Parser {
	return &Parser{
		ParseFunc: func(ctx context.Context, _ string) (models.StatsTable, error) {
			select {
			case <-release:
				return table, nil
			case <-ctx.Done():
				return models.StatsTable{}, ctx.Err()
			}
		},
	}
}

// UniformTable builds a table of n identical players with the given vision stats.
func UniformTable(n int, vision, placed, destroyed string) models.StatsTable {
	table := models.StatsTable{GameLengthMs: 30 * 60 * 1000, GameVersion: "14.1.1"}
	for i := 0; i < n; i++ {
		table.Players = append(table.Players, models.PlayerStats{
			models.StatVisionScore: vision,
			models.StatWardsPlaced: placed,
			models.StatWardsKilled: destroyed,
		})
	}
	return table
}

// Compile-time check that Parser implements replay.Parser.
var _ replay.Parser = (*Parser)(nil)
