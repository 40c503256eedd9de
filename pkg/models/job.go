// Package models contains shared data models used across the wardscope codebase.
package models

import "time"

// JobStatus is the lifecycle state of a replay processing job.
type JobStatus string

const (
	JobStatusWaiting    JobStatus = "waiting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is Completed or Failed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one uploaded replay through the processing queue. The API returns the job id
// on POST /api/v1/upload; the client polls GET /api/v1/queue/{id} until status is completed or failed.
type Job struct {
	ID          string           `json:"id"`
	FileName    string           `json:"fileName"`
	Status      JobStatus        `json:"status"`
	Progress    float64          `json:"progress"`
	Phase       string           `json:"phase,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Error       string           `json:"error,omitempty"`
	Result      []PlayerAnalysis `json:"result,omitempty"`
}

// Clone returns a deep copy that shares no pointers or slices with j.
func (j Job) Clone() Job {
	c := j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Result != nil {
		c.Result = make([]PlayerAnalysis, len(j.Result))
		for i, pa := range j.Result {
			c.Result[i] = pa.Clone()
		}
	}
	return c
}

// ProcessingTime returns CompletedAt - StartedAt, or false if either is unset.
func (j Job) ProcessingTime() (time.Duration, bool) {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0, false
	}
	return j.CompletedAt.Sub(*j.StartedAt), true
}
