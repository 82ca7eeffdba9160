package pipeline

import "fmt"

// Stage names one step of the pipeline
type Stage string

const (
	StageTriage     Stage = "triage"
	StageRootCause  Stage = "root_cause"
	StageResolution Stage = "resolution"
	StageEscalation Stage = "escalation"
)

// StageError is the single failure surfaced when any stage fails
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
