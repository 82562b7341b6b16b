// Package tasks opens, closes and reassigns the work-queue tasks that follow
// a case through its lifecycle.
//
// At most one task of a given kind is outstanding per case. OpenTask is
// idempotent per (case, kind) and CloseTask is a no-op when nothing is open,
// so replaying a lifecycle side effect never duplicates or fails. Every write
// is paired with exactly one audit entry.
//
// The orchestrator takes no locks of its own; callers serialise calls per
// case (the lifecycle engine holds the case lease around them).
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/audit"
	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
	"alert-case-service/internal/observability"
	"alert-case-service/internal/store"
)

// Store is the persistence the orchestrator needs. *store.Tasks satisfies it.
type Store interface {
	Save(ctx context.Context, t *modal.Task) (*modal.Task, error)
	FindByID(ctx context.Context, id string) (*modal.Task, error)
	FindActiveByCaseAndKind(ctx context.Context, caseID string, kind modal.TaskKind) (*modal.Task, error)
	FindByCase(ctx context.Context, caseID string) ([]*modal.Task, error)
	FindByAssignee(ctx context.Context, assignee string) ([]*modal.Task, error)
	FindByGroup(ctx context.Context, group string) ([]*modal.Task, error)
	FindByKind(ctx context.Context, kind modal.TaskKind) ([]*modal.Task, error)
}

// UserDirectory answers whether an identity may receive task assignments.
type UserDirectory interface {
	KnownUser(ctx context.Context, user string) (bool, error)
}

type Orchestrator struct {
	store   Store
	audit   *audit.Recorder
	users   UserDirectory
	groups  config.Groups
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func NewOrchestrator(s Store, rec *audit.Recorder, users UserDirectory, groups config.Groups, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:  s,
		audit:  rec,
		users:  users,
		groups: groups,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observability.NewNopMetrics()
	}
	return o
}

// OpenRequest describes a task to open. Exactly one of Assignee and Group is set.
type OpenRequest struct {
	CaseID      string
	Kind        modal.TaskKind
	Assignee    string
	Group       string
	Description string
	Actor       string
}

// OpenTask returns the outstanding task of req.Kind for the case if one
// exists, otherwise creates it.
func (o *Orchestrator) OpenTask(ctx context.Context, req OpenRequest) (*modal.Task, error) {
	const action = "open_task"
	if !req.Kind.Valid() {
		return nil, apperr.Validationf(action, "unknown task kind %q", req.Kind).WithCaseID(req.CaseID)
	}
	if (req.Assignee == "") == (req.Group == "") {
		return nil, apperr.Validationf(action, "exactly one of assignee and group is required").WithCaseID(req.CaseID)
	}

	existing, err := o.store.FindActiveByCaseAndKind(ctx, req.CaseID, req.Kind)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, storeErr(action, req.CaseID, err)
	}

	t := &modal.Task{
		ID:          uuid.NewString(),
		CaseID:      req.CaseID,
		Kind:        req.Kind,
		Description: req.Description,
		CreatedAt:   o.now(),
	}
	if req.Assignee != "" {
		t.Status = modal.TaskAssigned
		t.Assignee = req.Assignee
	} else {
		t.Status = modal.TaskOpen
		t.CandidateGroup = req.Group
	}

	saved, err := o.store.Save(ctx, t)
	if err != nil {
		return nil, storeErr(action, req.CaseID, err)
	}
	o.metrics.TasksOpened.WithLabelValues(string(req.Kind)).Inc()
	o.audit.Record(ctx, audit.Entry{
		CaseID:  saved.CaseID,
		TaskID:  saved.ID,
		Action:  modal.ActionTaskCreated,
		Actor:   req.Actor,
		Details: fmt.Sprintf("Task %s created for %s", saved.Kind, queueLabel(saved)),
	})
	o.logger.Info("task opened",
		slog.String("case_id", saved.CaseID),
		slog.String("task_id", saved.ID),
		slog.String("kind", string(saved.Kind)),
		slog.String("queue", queueLabel(saved)))
	return saved, nil
}

// CloseTask completes the outstanding task of kind for the case. It returns
// (nil, nil) when there is none so replays are harmless.
func (o *Orchestrator) CloseTask(ctx context.Context, caseID string, kind modal.TaskKind, completedBy string) (*modal.Task, error) {
	return o.finish(ctx, caseID, kind, completedBy, modal.ResolutionDone, "")
}

// CancelTask closes the outstanding task of kind without completing its work.
func (o *Orchestrator) CancelTask(ctx context.Context, caseID string, kind modal.TaskKind, actor, reason string) (*modal.Task, error) {
	return o.finish(ctx, caseID, kind, actor, modal.ResolutionCancelled, reason)
}

func (o *Orchestrator) finish(ctx context.Context, caseID string, kind modal.TaskKind, actor string, res modal.TaskResolution, reason string) (*modal.Task, error) {
	const action = "close_task"
	t, err := o.store.FindActiveByCaseAndKind(ctx, caseID, kind)
	if errors.Is(err, store.ErrNotFound) {
		o.logger.Debug("no open task to close",
			slog.String("case_id", caseID),
			slog.String("kind", string(kind)))
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(action, caseID, err)
	}

	now := o.now()
	t.Status = modal.TaskCompleted
	t.Resolution = res
	t.CompletedAt = &now
	t.CompletedBy = actor

	saved, err := o.store.Save(ctx, t)
	if err != nil {
		return nil, storeErr(action, caseID, err)
	}

	entry := audit.Entry{
		CaseID:  caseID,
		TaskID:  saved.ID,
		Action:  modal.ActionTaskCompleted,
		Actor:   actor,
		Details: fmt.Sprintf("Task %s completed", saved.Kind),
	}
	if res == modal.ResolutionCancelled {
		entry.Action = modal.ActionTaskCancelled
		entry.Details = fmt.Sprintf("Task %s cancelled: %s", saved.Kind, reason)
	}
	o.audit.Record(ctx, entry)
	return saved, nil
}

// Reassign hands a task to newAssignee, or back to its candidate group when
// newAssignee is nil. Completed tasks cannot be reassigned.
func (o *Orchestrator) Reassign(ctx context.Context, taskID string, newAssignee *string, performedBy string) (*modal.Task, error) {
	const action = "reassign_task"
	t, err := o.store.FindByID(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf(action, "task %s not found", taskID)
	}
	if err != nil {
		return nil, storeErr(action, "", err)
	}
	if t.Status == modal.TaskCompleted {
		return nil, apperr.InvalidStatef(action, "task %s is already completed", taskID).WithCaseID(t.CaseID)
	}

	previous := t.Assignee
	entry := audit.Entry{CaseID: t.CaseID, TaskID: t.ID, Actor: performedBy, OldValue: previous}

	if newAssignee == nil {
		t.Status = modal.TaskUnassigned
		t.Assignee = ""
		if t.CandidateGroup == "" {
			t.CandidateGroup = o.DefaultGroup(t.Kind)
		}
		entry.Action = modal.ActionTaskUnassigned
		entry.Details = fmt.Sprintf("Task returned to group %s", t.CandidateGroup)
	} else {
		user := *newAssignee
		known, err := o.users.KnownUser(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("%s: look up user %s: %w", action, user, err)
		}
		if !known {
			return nil, apperr.Validationf(action, "unknown user %q", user).WithCaseID(t.CaseID)
		}
		t.Status = modal.TaskAssigned
		t.Assignee = user
		t.CandidateGroup = ""
		entry.Action = modal.ActionTaskAssigned
		entry.Details = fmt.Sprintf("Task assigned to %s", user)
		entry.NewValue = user
	}

	saved, err := o.store.Save(ctx, t)
	if err != nil {
		return nil, storeErr(action, t.CaseID, err)
	}
	o.audit.Record(ctx, entry)
	return saved, nil
}

// DefaultGroup is the queue a task of kind falls back to when unassigned.
func (o *Orchestrator) DefaultGroup(kind modal.TaskKind) string {
	switch kind {
	case modal.KindApproveCreation:
		return o.groups.Approvers
	case modal.KindInvestigate:
		return o.groups.Investigators
	default:
		return o.groups.Analysts
	}
}

func (o *Orchestrator) Get(ctx context.Context, taskID string) (*modal.Task, error) {
	t, err := o.store.FindByID(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("get_task", "task %s not found", taskID)
	}
	if err != nil {
		return nil, storeErr("get_task", "", err)
	}
	return t, nil
}

func (o *Orchestrator) ForCase(ctx context.Context, caseID string) ([]*modal.Task, error) {
	return o.list("list_tasks", caseID, func() ([]*modal.Task, error) { return o.store.FindByCase(ctx, caseID) })
}

func (o *Orchestrator) ForAssignee(ctx context.Context, assignee string) ([]*modal.Task, error) {
	return o.list("list_tasks", "", func() ([]*modal.Task, error) { return o.store.FindByAssignee(ctx, assignee) })
}

func (o *Orchestrator) ForGroup(ctx context.Context, group string) ([]*modal.Task, error) {
	return o.list("list_tasks", "", func() ([]*modal.Task, error) { return o.store.FindByGroup(ctx, group) })
}

func (o *Orchestrator) ForKind(ctx context.Context, kind modal.TaskKind) ([]*modal.Task, error) {
	return o.list("list_tasks", "", func() ([]*modal.Task, error) { return o.store.FindByKind(ctx, kind) })
}

func (o *Orchestrator) list(action, caseID string, fn func() ([]*modal.Task, error)) ([]*modal.Task, error) {
	out, err := fn()
	if err != nil {
		return nil, storeErr(action, caseID, err)
	}
	return out, nil
}

func queueLabel(t *modal.Task) string {
	if t.Assignee != "" {
		return "user " + t.Assignee
	}
	return "group " + t.CandidateGroup
}

func storeErr(action, caseID string, err error) error {
	kind := apperr.KindStore
	if errors.Is(err, context.DeadlineExceeded) {
		kind = apperr.KindTimeout
	}
	return apperr.Wrap(kind, action, err).WithCaseID(caseID)
}
