package queue

import "time"

// Phase labels reported on Job.Phase.
const (
	PhaseValidating = "Validating file"
	PhaseExtracting = "Extracting data"
	PhaseAnalyzing  = "Analyzing wards"
	PhaseScoring    = "Calculating score"
	PhaseFinalizing = "Finalizing"
	PhaseComplete   = "Analysis complete"
	PhaseFailed     = "An error occurred"
)

const defaultStepsPerPhase = 5

type stage int

const (
	stageNone stage = iota
	stageExtract
	stageAnalyze
)

type phase struct {
	name     string
	target   float64 // cumulative progress at the end of the phase
	duration time.Duration
	stage    stage // work that runs when the phase begins
}

var pipeline = []phase{
	{name: PhaseValidating, target: 20, duration: 500 * time.Millisecond},
	{name: PhaseExtracting, target: 40, duration: 1000 * time.Millisecond, stage: stageExtract},
	{name: PhaseAnalyzing, target: 70, duration: 1500 * time.Millisecond, stage: stageAnalyze},
	{name: PhaseScoring, target: 90, duration: 800 * time.Millisecond},
	{name: PhaseFinalizing, target: 100, duration: 300 * time.Millisecond},
}

// stepProgress returns the progress after one sub-step toward target. inc is the
// per-step increment fixed at the start of the phase; the last step lands exactly
// on target so floating point drift never leaves a phase short.
func stepProgress(current, inc, target float64, last bool) float64 {
	if last {
		return max(current, target)
	}
	return max(current, min(target, current+inc))
}
