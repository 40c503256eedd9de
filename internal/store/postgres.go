package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wardscope/wardscope/pkg/models"
)

const maxListLimit = 100

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveAnalysis inserts the analysis or replaces an existing one with the same
// match id. ArchivedAt is filled in from the database.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *models.ReplayAnalysis) error {
	players, err := json.Marshal(a.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO replay_analyses
		   (match_id, file_name, player_count, players, started_at, completed_at, processing_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (match_id) DO UPDATE SET
		   file_name = EXCLUDED.file_name,
		   player_count = EXCLUDED.player_count,
		   players = EXCLUDED.players,
		   started_at = EXCLUDED.started_at,
		   completed_at = EXCLUDED.completed_at,
		   processing_time_ms = EXCLUDED.processing_time_ms,
		   archived_at = NOW()
		 RETURNING archived_at`,
		a.MatchID, a.FileName, len(a.Players), players, a.StartedAt, a.CompletedAt, a.ProcessingTimeMs,
	).Scan(&a.ArchivedAt)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, matchID string) (*models.ReplayAnalysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT match_id, file_name, players, started_at, completed_at, processing_time_ms, archived_at
		 FROM replay_analyses WHERE match_id = $1`, matchID)

	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns the most recently completed analyses, newest first.
func (s *PostgresStore) ListAnalyses(ctx context.Context, limit int) ([]*models.ReplayAnalysis, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT match_id, file_name, players, started_at, completed_at, processing_time_ms, archived_at
		 FROM replay_analyses ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []*models.ReplayAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAnalysis(row pgx.Row) (*models.ReplayAnalysis, error) {
	var (
		a       models.ReplayAnalysis
		players []byte
	)
	if err := row.Scan(&a.MatchID, &a.FileName, &players, &a.StartedAt, &a.CompletedAt,
		&a.ProcessingTimeMs, &a.ArchivedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(players, &a.Players); err != nil {
		return nil, fmt.Errorf("decode players for %s: %w", a.MatchID, err)
	}
	return &a, nil
}
