package queue

import (
	"strconv"
	"sync"
	"time"
)

const matchIDPrefix = "BR1_"

// IDGenerator hands out match ids of the form BR1_<unix millis>. Ids are strictly
// increasing within a process even when several are requested in the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return matchIDPrefix + strconv.FormatInt(ms, 10)
}
