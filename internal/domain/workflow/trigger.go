package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerStartAnalysis     Trigger = "START_ANALYSIS"
	TriggerCompleteAnalysis  Trigger = "COMPLETE_ANALYSIS"
	TriggerFailProcessing    Trigger = "FAIL_PROCESSING"
	TriggerEscalate          Trigger = "ESCALATE"
	TriggerAutoApprove       Trigger = "AUTO_APPROVE"
	TriggerRequestReview     Trigger = "REQUEST_REVIEW"
	TriggerApprove           Trigger = "APPROVE"
	TriggerReject            Trigger = "REJECT"
	TriggerExecuteResolution Trigger = "EXECUTE_RESOLUTION"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
