package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"alert-case-service/internal/modal"
)

// WorkflowID is the deterministic id of a case's investigation, so a repeated
// start attaches to the existing execution instead of creating another.
func WorkflowID(caseNumber string) string {
	return "investigate-" + caseNumber
}

// TemporalBridge starts and talks to investigation workflows.
type TemporalBridge struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

func NewTemporalBridge(c client.Client, taskQueue string, logger *slog.Logger) *TemporalBridge {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalBridge{client: c, taskQueue: taskQueue, logger: logger}
}

func (b *TemporalBridge) Start(ctx context.Context, req modal.InvestigationRequest) (modal.WorkflowHandle, error) {
	opts := client.StartWorkflowOptions{
		ID:                                       WorkflowID(req.CaseNumber),
		TaskQueue:                                b.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: false,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := b.client.ExecuteWorkflow(ctx, opts, InvestigateCase, req)
	if err != nil {
		return modal.WorkflowHandle{}, fmt.Errorf("start investigation for %s: %w", req.CaseNumber, err)
	}
	b.logger.Info("investigation workflow started",
		slog.String("case_id", req.CaseID),
		slog.String("workflow_id", run.GetID()),
		slog.String("run_id", run.GetRunID()))
	return modal.WorkflowHandle{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

func (b *TemporalBridge) Decide(ctx context.Context, h modal.WorkflowHandle, d modal.InvestigationDecision) error {
	if err := b.client.SignalWorkflow(ctx, h.WorkflowID, h.RunID, DecisionSignal, d); err != nil {
		return fmt.Errorf("signal decision to %s: %w", h.WorkflowID, err)
	}
	return nil
}

func (b *TemporalBridge) CaseFile(ctx context.Context, h modal.WorkflowHandle) (modal.CaseFile, error) {
	var cf modal.CaseFile
	err := b.query(ctx, h, QueryCaseFile, &cf)
	return cf, err
}

func (b *TemporalBridge) Events(ctx context.Context, h modal.WorkflowHandle) ([]modal.InvestigationEvent, error) {
	var events []modal.InvestigationEvent
	err := b.query(ctx, h, QueryAuditLog, &events)
	return events, err
}

func (b *TemporalBridge) query(ctx context.Context, h modal.WorkflowHandle, queryType string, out any) error {
	qr, err := b.client.QueryWorkflow(ctx, h.WorkflowID, h.RunID, queryType)
	if err != nil {
		return fmt.Errorf("query %s on %s: %w", queryType, h.WorkflowID, err)
	}
	if err := qr.Get(out); err != nil {
		return fmt.Errorf("decode %s from %s: %w", queryType, h.WorkflowID, err)
	}
	return nil
}
