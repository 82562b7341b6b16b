// Package audit appends immutable, timestamped records of actions taken
// against cases and tasks.
//
// Recording is best-effort: a sink failure is logged and counted but never
// returned to the caller, so audit completeness is a monitoring concern
// rather than a precondition of a case transition.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"alert-case-service/internal/modal"
	"alert-case-service/internal/observability"
)

// Sink is the durable destination of audit entries.
type Sink interface {
	Append(ctx context.Context, e modal.AuditEntry) error
}

// Entry is the caller-supplied part of an audit entry.
type Entry struct {
	CaseID   string
	TaskID   string
	Action   modal.AuditAction
	Actor    string
	Details  string
	OldValue string
	NewValue string
}

type Recorder struct {
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

type Option func(*Recorder)

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(sink Sink, logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		sink:   sink,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observability.NewNopMetrics()
	}
	return r
}

// Record appends one entry and returns it. The returned bool is false when
// the sink rejected the write; callers are not expected to act on it.
func (r *Recorder) Record(ctx context.Context, in Entry) (modal.AuditEntry, bool) {
	e := modal.AuditEntry{
		ID:        newEntryID(),
		CaseID:    in.CaseID,
		TaskID:    in.TaskID,
		Action:    in.Action,
		Actor:     in.Actor,
		Details:   in.Details,
		OldValue:  in.OldValue,
		NewValue:  in.NewValue,
		Timestamp: r.now(),
	}

	// The entry describes work that already happened, so it is written even
	// if the caller's context has just been cancelled.
	if err := r.sink.Append(context.WithoutCancel(ctx), e); err != nil {
		r.metrics.AuditWriteFailures.Inc()
		r.logger.Error("audit write failed",
			slog.String("case_id", e.CaseID),
			slog.String("task_id", e.TaskID),
			slog.String("action", string(e.Action)),
			slog.String("actor", e.Actor),
			slog.String("error", err.Error()))
		return e, false
	}
	r.logger.Debug("audit entry recorded",
		slog.String("case_id", e.CaseID),
		slog.String("action", string(e.Action)),
		slog.String("actor", e.Actor))
	return e, true
}

// StatusChange records a STATUS_CHANGE entry with the old and new status.
func (r *Recorder) StatusChange(ctx context.Context, caseID, actor string, from, to modal.CaseStatus) {
	r.Record(ctx, Entry{
		CaseID:   caseID,
		Action:   modal.ActionStatusChange,
		Actor:    actor,
		Details:  "Status changed from " + string(from) + " to " + string(to),
		OldValue: string(from),
		NewValue: string(to),
	})
}

// newEntryID prefers time-ordered v7 ids and falls back to v4.
func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
