package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"alert-case-service/internal/modal"
)

const (
	DefaultTaskQueue = "CASE_INVESTIGATION_TASK_QUEUE"
	DecisionSignal   = "INVESTIGATION_DECISION_SIGNAL"

	QueryCaseFile = "casefile"
	QueryAuditLog = "audit_log"

	ActivityBuildCaseFile       = "BuildCaseFile"
	ActivityNotifyInvestigators = "NotifyInvestigators"
)

type workflowState struct {
	CaseFile modal.CaseFile             `json:"caseFile"`
	Events   []modal.InvestigationEvent `json:"events,omitempty"`
}

// InvestigateCase follows a ready case until an investigator signals a
// decision. Missing the SLA flags the case file but keeps waiting.
func InvestigateCase(ctx workflow.Context, req modal.InvestigationRequest) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("investigation started", "caseID", req.CaseID, "caseNumber", req.CaseNumber)

	state := &workflowState{
		Events: make([]modal.InvestigationEvent, 0),
	}

	record := func(kind, message string, data map[string]any) {
		state.Events = append(state.Events, modal.InvestigationEvent{
			At:      workflow.Now(ctx),
			Kind:    kind,
			Message: message,
			Data:    data,
		})
	}

	// Queries let the API read the case file and history without extra storage.
	_ = workflow.SetQueryHandler(ctx, QueryCaseFile, func() (modal.CaseFile, error) {
		return state.CaseFile, nil
	})

	_ = workflow.SetQueryHandler(ctx, QueryAuditLog, func() ([]modal.InvestigationEvent, error) {
		return state.Events, nil
	})

	// Retry transient activity failures with exponential backoff (1s, 2s, 4s).
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var cf modal.CaseFile
	if err := workflow.ExecuteActivity(actx, ActivityBuildCaseFile, req).Get(actx, &cf); err != nil {
		logger.Error("failed to build case file", "error", err)
		return "", err
	}
	state.CaseFile = cf
	record("CASEFILE_BUILT", "case file built", map[string]any{
		"priority": cf.Priority,
		"dueAt":    cf.DueAt,
	})

	// Notification is best effort and never blocks the investigation.
	nctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(nctx, ActivityNotifyInvestigators, cf).Get(nctx, nil); err != nil {
		logger.Warn("failed to notify investigators", "error", err)
		record("NOTIFY_FAILED", "investigators could not be notified", map[string]any{"error": err.Error()})
	} else {
		record("INVESTIGATORS_NOTIFIED", "investigators notified", nil)
	}

	var (
		decision modal.InvestigationDecision
		received bool
	)
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, DecisionSignal), func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &decision)
		received = true
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, cf.SLA), func(f workflow.Future) {
		if err := f.Get(ctx, nil); err != nil {
			return
		}
		state.CaseFile.SLABreached = true
		record("SLA_BREACHED", "no decision within SLA", map[string]any{"sla": cf.SLA.String()})
		logger.Warn("investigation SLA breached", "caseNumber", req.CaseNumber)
	})

	for {
		selector.Select(ctx) // yields until a signal or the SLA timer
		if !received {
			continue
		}
		if decision.Outcome.Valid() {
			break
		}
		record("DECISION_REJECTED", "ignored decision with unknown outcome", map[string]any{"outcome": string(decision.Outcome)})
		received = false
	}

	d := decision
	state.CaseFile.Decision = &d
	record("DECIDED", "investigation concluded", map[string]any{
		"outcome": string(d.Outcome),
		"decider": d.Decider,
	})
	logger.Info("investigation concluded", "caseNumber", req.CaseNumber, "outcome", d.Outcome)
	return string(d.Outcome), nil
}
