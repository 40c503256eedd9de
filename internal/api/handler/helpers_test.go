package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wardscope/wardscope/internal/queue"
	"github.com/wardscope/wardscope/internal/replay/mock"
	"github.com/wardscope/wardscope/internal/store"
	"github.com/wardscope/wardscope/pkg/models"
)

// --- fixtures ---

type seqIDs struct {
	mu   sync.Mutex
	n    int
	same bool
}

func (s *seqIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.same {
		s.n++
	}
	return fmt.Sprintf("BR1_%d", 1000+s.n)
}

func newQueue(t *testing.T, table models.StatsTable, started bool) *queue.Queue {
	t.Helper()
	q := queue.New(mock.NewStaticParser(table), queue.WithTimeScale(0))
	if started {
		q.Start(context.Background())
		t.Cleanup(q.Stop)
	}
	return q
}

func waitCompleted(t *testing.T, q *queue.Queue, id string) models.Job {
	t.Helper()
	var job models.Job
	require.Eventually(t, func() bool {
		j, err := q.GetJob(id)
		job = j
		return err == nil && j.Status == models.JobStatusCompleted
	}, 3*time.Second, 2*time.Millisecond)
	return job
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func parseErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

// --- fake archive ---

type memArchive struct {
	mu       sync.Mutex
	items    map[string]*models.ReplayAnalysis
	err      error
	gets     int
	lastList int
}

func newMemArchive() *memArchive {
	return &memArchive{items: map[string]*models.ReplayAnalysis{}}
}

func (m *memArchive) Ping(context.Context) error { return m.err }

func (m *memArchive) SaveAnalysis(_ context.Context, a *models.ReplayAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[a.MatchID] = a
	return nil
}

func (m *memArchive) GetAnalysis(_ context.Context, id string) (*models.ReplayAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *memArchive) ListAnalyses(_ context.Context, limit int) ([]*models.ReplayAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = limit
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.ReplayAnalysis
	for _, a := range m.items {
		out = append(out, a)
	}
	return out, nil
}

var _ store.Store = (*memArchive)(nil)

// --- fake cache ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	jobs map[string]models.Job
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, jobs: map[string]models.Job{}}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) SetJob(_ context.Context, job models.Job, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[job.ID] = job
	return nil
}

func (c *memCache) GetJob(_ context.Context, id string) (models.Job, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return models.Job{}, false, c.err
	}
	j, ok := c.jobs[id]
	return j, ok, nil
}

func (c *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}
