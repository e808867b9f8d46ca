package ml

// Stage is a step of a single form submission.
type Stage int

const (
	StageIdle Stage = iota
	StageCollecting
	StageValidating
	StageScaling
	StagePredicting
	StageDisplaying
	StageFailed
)

var stageNames = [...]string{
	StageIdle:       "idle",
	StageCollecting: "collecting",
	StageValidating: "validating",
	StageScaling:    "scaling",
	StagePredicting: "predicting",
	StageDisplaying: "displaying",
	StageFailed:     "error",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
