// Package lifecycle is the sole writer of case status.
//
// Every mutating operation runs under an exclusive per-case lease and a
// bounded deadline. The status write is committed first; task orchestration,
// the workflow hand-off and audit entries follow as effects of that write.
// A failed effect never rolls the case back. It surfaces as a PartialFailure
// error carrying the persisted case, and retrying the same effect is safe
// because task opens and closes are idempotent.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/audit"
	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
	"alert-case-service/internal/observability"
	"alert-case-service/internal/store"
	"alert-case-service/internal/tasks"
)

// CaseStore is the case persistence the engine needs. *store.Cases satisfies it.
type CaseStore interface {
	Save(ctx context.Context, c *modal.Case) (*modal.Case, error)
	FindByID(ctx context.Context, id string) (*modal.Case, error)
	FindByCaseNumber(ctx context.Context, number string) (*modal.Case, error)
	FindByStatus(ctx context.Context, status modal.CaseStatus) ([]*modal.Case, error)
	FindByCreator(ctx context.Context, actor string) ([]*modal.Case, error)
	FindByAlertID(ctx context.Context, alertID string) ([]*modal.Case, error)
	List(ctx context.Context) ([]*modal.Case, error)
	CountByStatus(ctx context.Context, status modal.CaseStatus) (int, error)
	Delete(ctx context.Context, c *modal.Case) error
	NextSequenceNumber(ctx context.Context) (int64, error)
}

// AuditReader reads back the audit trail. *store.AuditLog satisfies it.
type AuditReader interface {
	FindByCase(ctx context.Context, caseID string) ([]modal.AuditEntry, error)
	FindByActor(ctx context.Context, actor string) ([]modal.AuditEntry, error)
}

// WorkflowBridge hands a ready case to the external investigation process.
// Start is called once per case, on its first entry into ready for assignment.
type WorkflowBridge interface {
	Start(ctx context.Context, req modal.InvestigationRequest) (modal.WorkflowHandle, error)
	Decide(ctx context.Context, h modal.WorkflowHandle, d modal.InvestigationDecision) error
}

const (
	effectTasks    = "tasks"
	effectWorkflow = "workflow"
)

// Deps are the collaborators of an Engine. Metrics, Logger and Now are optional.
type Deps struct {
	Cases      CaseStore
	AuditLog   AuditReader
	Tasks      *tasks.Orchestrator
	Audit      *audit.Recorder
	Bridge     WorkflowBridge
	Authorizer Authorizer
	Metrics    *observability.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

type Engine struct {
	cases     CaseStore
	trail     AuditReader
	orch      *tasks.Orchestrator
	audit     *audit.Recorder
	bridge    WorkflowBridge
	authz     Authorizer
	validator *FieldValidator
	gate      ApprovalGate
	groups    config.Groups
	timeout   time.Duration
	leases    *leaseTable
	metrics   *observability.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func New(cfg config.Config, d Deps) (*Engine, error) {
	switch {
	case d.Cases == nil:
		return nil, errors.New("lifecycle: case store is required")
	case d.AuditLog == nil:
		return nil, errors.New("lifecycle: audit reader is required")
	case d.Tasks == nil:
		return nil, errors.New("lifecycle: task orchestrator is required")
	case d.Audit == nil:
		return nil, errors.New("lifecycle: audit recorder is required")
	case d.Bridge == nil:
		return nil, errors.New("lifecycle: workflow bridge is required")
	case d.Authorizer == nil:
		return nil, errors.New("lifecycle: authorizer is required")
	case cfg.OperationTimeout <= 0:
		return nil, fmt.Errorf("lifecycle: operation timeout must be positive, got %s", cfg.OperationTimeout)
	}

	e := &Engine{
		cases:     d.Cases,
		trail:     d.AuditLog,
		orch:      d.Tasks,
		audit:     d.Audit,
		bridge:    d.Bridge,
		authz:     d.Authorizer,
		validator: NewFieldValidator(cfg.Vocabulary),
		gate:      NewApprovalGate(cfg.Approval),
		groups:    cfg.Groups,
		timeout:   cfg.OperationTimeout,
		leases:    newLeaseTable(),
		metrics:   d.Metrics,
		logger:    d.Logger,
		tracer:    observability.Tracer(),
		now:       d.Now,
	}
	if e.metrics == nil {
		e.metrics = observability.NewNopMetrics()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e, nil
}

// op tracks one engine operation for tracing and metrics.
type op struct {
	e      *Engine
	action string
	start  time.Time
	span   trace.Span
	cancel context.CancelFunc
}

func (e *Engine) begin(ctx context.Context, action, caseID, actor string) (context.Context, *op) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	ctx, span := e.tracer.Start(ctx, "lifecycle."+action, trace.WithAttributes(
		attribute.String("case.id", caseID),
		attribute.String("actor", actor),
	))
	return ctx, &op{e: e, action: action, start: time.Now(), span: span, cancel: cancel}
}

func (o *op) end(err error) {
	defer o.cancel()
	defer o.span.End()

	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.e.metrics.Operations.WithLabelValues(o.action, outcome).Inc()
	o.e.metrics.OperationDuration.WithLabelValues(o.action).Observe(time.Since(o.start).Seconds())
}

// lease blocks for the per-case lease until ctx expires.
func (e *Engine) lease(ctx context.Context, action, caseID string) (func(), error) {
	start := time.Now()
	release, err := e.leases.acquire(ctx, caseID)
	e.metrics.LeaseWait.Observe(time.Since(start).Seconds())
	if err != nil {
		ae := apperr.Wrap(apperr.KindTimeout, action, err).WithCaseID(caseID)
		ae.Msg = "case is busy"
		return nil, ae
	}
	return release, nil
}

// withCase runs fn on the current case while holding its lease.
func (e *Engine) withCase(ctx context.Context, action, caseID string, fn func(cur *modal.Case) (*modal.Case, error)) (*modal.Case, error) {
	if caseID == "" {
		return nil, apperr.Validationf(action, "case id is required")
	}
	release, err := e.lease(ctx, action, caseID)
	if err != nil {
		return nil, err
	}
	defer release()

	cur, err := e.load(ctx, action, caseID)
	if err != nil {
		return nil, err
	}
	return fn(cur)
}

func (e *Engine) load(ctx context.Context, action, caseID string) (*modal.Case, error) {
	c, err := e.cases.FindByID(ctx, caseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf(action, "case %s not found", caseID).WithCaseID(caseID)
	}
	if err != nil {
		return nil, e.storeErr(action, &modal.Case{ID: caseID}, err)
	}
	return c, nil
}

// save persists next and, when its status differs from prev, records the
// single STATUS_CHANGE entry for the transition.
func (e *Engine) save(ctx context.Context, action string, prev, next *modal.Case, actor string) (*modal.Case, error) {
	next.UpdatedBy = actor
	next.UpdatedAt = e.now()
	saved, err := e.cases.Save(ctx, next)
	if err != nil {
		return nil, e.storeErr(action, prev, err)
	}
	if prev != nil && prev.Status != saved.Status {
		e.metrics.Transitions.WithLabelValues(string(prev.Status), string(saved.Status)).Inc()
		e.audit.StatusChange(ctx, saved.ID, actor, prev.Status, saved.Status)
		e.logger.Info("case status changed",
			slog.String("case_id", saved.ID),
			slog.String("case_number", saved.CaseNumber),
			slog.String("from", string(prev.Status)),
			slog.String("to", string(saved.Status)),
			slog.String("actor", actor),
			slog.String("action", action))
	}
	return saved, nil
}

// storeErr reports a failed read or write; c is the case as it was before.
func (e *Engine) storeErr(action string, c *modal.Case, err error) error {
	kind := apperr.KindStore
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apperr.KindTimeout
	}
	return apperr.Wrap(kind, action, err).WithCase(c)
}

// effectFailed reports an effect that failed after c was persisted.
func (e *Engine) effectFailed(action string, c *modal.Case, effect string, err error) error {
	e.metrics.SideEffectFailures.WithLabelValues(effect).Inc()
	e.logger.Error("side effect failed after case was persisted",
		slog.String("case_id", c.ID),
		slog.String("status", string(c.Status)),
		slog.String("action", action),
		slog.String("effect", effect),
		slog.String("error", err.Error()))

	kind := apperr.KindPartialFailure
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apperr.KindTimeout
	}
	ae := apperr.Wrap(kind, action, err).WithCase(c)
	ae.Msg = effect + " failed after case was persisted"
	ae.Case = c.Clone()
	return ae
}

// denied records the refused attempt and returns an Unauthorized error.
func (e *Engine) denied(ctx context.Context, action string, c *modal.Case, actor, reason string) error {
	e.audit.Record(ctx, audit.Entry{
		CaseID:  c.ID,
		Action:  modal.ActionAccessDenied,
		Actor:   actor,
		Details: fmt.Sprintf("%s refused: %s", action, reason),
	})
	e.logger.Warn("lifecycle action denied",
		slog.String("case_id", c.ID),
		slog.String("action", action),
		slog.String("actor", actor),
		slog.String("reason", reason))
	return apperr.Unauthorizedf(action, "%s", reason).WithCase(c)
}
