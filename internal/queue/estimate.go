package queue

import (
	"fmt"
	"math"
	"time"

	"github.com/wardscope/wardscope/pkg/models"
)

const (
	WaitingEstimate = "2-5 minutes"

	assumedTotalDuration  = 120 * time.Second
	minRemainingEstimate  = 10 * time.Second
	defaultAvgProcessTime = 120 * time.Second
	recentJobsLimit       = 10
)

// EstimateRemaining is the heuristic time left for a processing job: the
// unfinished share of an assumed two-minute run, never below ten seconds.
// Terminal jobs report zero. Waiting jobs report the assumed total duration.
func EstimateRemaining(job models.Job) time.Duration {
	switch job.Status {
	case models.JobStatusWaiting:
		return assumedTotalDuration
	case models.JobStatusProcessing:
		remaining := (100 - job.Progress) / 100 * assumedTotalDuration.Seconds()
		secs := time.Duration(math.Round(remaining)) * time.Second
		return max(minRemainingEstimate, secs)
	default:
		return 0
	}
}

// FormatEstimate renders the estimate shown to polling clients.
func FormatEstimate(job models.Job) string {
	if job.Status == models.JobStatusWaiting {
		return WaitingEstimate
	}
	return fmt.Sprintf("%d seconds", int(EstimateRemaining(job).Seconds()))
}

// Stats aggregates the current job table for the queue dashboard.
type Stats struct {
	Total                 int         `json:"total"`
	Waiting               int         `json:"waiting"`
	Processing            int         `json:"processing"`
	Completed             int         `json:"completed"`
	Failed                int         `json:"failed"`
	AverageProcessingTime int         `json:"averageProcessingTime"` // seconds
	EstimatedWaitTime     int         `json:"estimatedWaitTime"`     // seconds
	RecentJobs            []RecentJob `json:"recentJobs"`
}

// RecentJob is the compact job view used in Stats.
type RecentJob struct {
	ID               string           `json:"id"`
	FileName         string           `json:"fileName"`
	Status           models.JobStatus `json:"status"`
	Progress         int              `json:"progress"`
	CreatedAt        time.Time        `json:"createdAt"`
	ProcessingTimeMs *int64           `json:"processingTime"`
}

// ComputeStats summarizes jobs, which are expected newest first as returned by GetAllJobs.
func ComputeStats(jobs []models.Job) Stats {
	s := Stats{Total: len(jobs), RecentJobs: make([]RecentJob, 0, min(len(jobs), recentJobsLimit))}
	for _, j := range jobs {
		switch j.Status {
		case models.JobStatusWaiting:
			s.Waiting++
		case models.JobStatusProcessing:
			s.Processing++
		case models.JobStatusCompleted:
			s.Completed++
		case models.JobStatusFailed:
			s.Failed++
		}
	}

	avg := AverageProcessingTime(jobs)
	s.AverageProcessingTime = int(avg.Seconds())

	wait := float64(s.Waiting) * avg.Seconds()
	if s.Processing > 0 {
		// the running job is assumed to be half done
		wait += avg.Seconds() * 0.5
	}
	s.EstimatedWaitTime = int(math.Max(0, math.Round(wait)))

	for i, j := range jobs {
		if i == recentJobsLimit {
			break
		}
		rj := RecentJob{
			ID:        j.ID,
			FileName:  j.FileName,
			Status:    j.Status,
			Progress:  int(math.Round(j.Progress)),
			CreatedAt: j.CreatedAt,
		}
		if d, ok := j.ProcessingTime(); ok {
			ms := d.Milliseconds()
			rj.ProcessingTimeMs = &ms
		}
		s.RecentJobs = append(s.RecentJobs, rj)
	}
	return s
}

// AverageProcessingTime is the mean CompletedAt-StartedAt over completed jobs,
// rounded to whole seconds, or two minutes when none have completed.
func AverageProcessingTime(jobs []models.Job) time.Duration {
	var total time.Duration
	var n int
	for _, j := range jobs {
		if j.Status != models.JobStatusCompleted {
			continue
		}
		if d, ok := j.ProcessingTime(); ok {
			total += d
			n++
		}
	}
	if n == 0 {
		return defaultAvgProcessTime
	}
	secs := math.Round(total.Seconds() / float64(n))
	return time.Duration(secs) * time.Second
}
