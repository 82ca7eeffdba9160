package workflow

import (
	domainwf "github.com/garyjia/ai-claims/internal/domain/workflow"
)

var claimBuilder = newClaimBuilder()

// operatorTargets lists triggers that reach their target from any
// non-terminal state when strict transitions are off
var operatorTargets = map[domainwf.Trigger]domainwf.State{
	domainwf.TriggerApprove: domainwf.StateApproved,
}

func newClaimBuilder() domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder()

	// START_ANALYSIS is reserved; the pipeline goes straight to triaged
	builder.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerStartAnalysis, domainwf.StateAnalyzing).
		Permit(domainwf.TriggerCompleteAnalysis, domainwf.StateTriaged).
		Permit(domainwf.TriggerFailProcessing, domainwf.StateEscalated).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	builder.Configure(domainwf.StateAnalyzing).
		Permit(domainwf.TriggerCompleteAnalysis, domainwf.StateTriaged).
		Permit(domainwf.TriggerFailProcessing, domainwf.StateEscalated)

	builder.Configure(domainwf.StateTriaged).
		Permit(domainwf.TriggerEscalate, domainwf.StateEscalated).
		Permit(domainwf.TriggerAutoApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerRequestReview, domainwf.StatePendingApproval).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	builder.Configure(domainwf.StatePendingApproval).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerEscalate, domainwf.StateEscalated)

	builder.Configure(domainwf.StateEscalated).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRequestReview, domainwf.StatePendingApproval)

	builder.Configure(domainwf.StateApproved).
		Permit(domainwf.TriggerExecuteResolution, domainwf.StateResolved)

	// rejected and resolved are terminal

	return builder
}

// BuildClaimStateMachine creates a machine over the claim transition table
func BuildClaimStateMachine(initialState domainwf.State) domainwf.StateMachine {
	return claimBuilder.Build(initialState)
}
