package models

import "time"

// ReplayAnalysis is a completed job as kept in the long-term archive.
type ReplayAnalysis struct {
	MatchID          string           `json:"matchId"`
	FileName         string           `json:"fileName"`
	Players          []PlayerAnalysis `json:"players"`
	StartedAt        *time.Time       `json:"startedAt"`
	CompletedAt      time.Time        `json:"completedAt"`
	ProcessingTimeMs int64            `json:"processingTime"`
	ArchivedAt       time.Time        `json:"archivedAt"`
}

// NewReplayAnalysis builds the archive record for a completed job. It reports
// false for jobs that are not completed.
func NewReplayAnalysis(job Job) (*ReplayAnalysis, bool) {
	if job.Status != JobStatusCompleted || job.CompletedAt == nil {
		return nil, false
	}
	c := job.Clone()
	ra := &ReplayAnalysis{
		MatchID:     c.ID,
		FileName:    c.FileName,
		Players:     c.Result,
		StartedAt:   c.StartedAt,
		CompletedAt: *c.CompletedAt,
	}
	if ra.Players == nil {
		ra.Players = []PlayerAnalysis{}
	}
	if d, ok := c.ProcessingTime(); ok {
		ra.ProcessingTimeMs = d.Milliseconds()
	}
	return ra, true
}
