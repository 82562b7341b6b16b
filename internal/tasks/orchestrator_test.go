package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/audit"
	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
	"alert-case-service/internal/store"
)

type fixture struct {
	orch  *Orchestrator
	tasks *store.Tasks
	audit *store.AuditLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.Users = map[string][]string{"alice": nil, "carol": nil}

	rec := audit.NewRecorder(db.Audit(), nil)
	return fixture{
		orch:  NewOrchestrator(db.Tasks(), rec, NewConfigDirectory(cfg), cfg.Groups, nil),
		tasks: db.Tasks(),
		audit: db.Audit(),
	}
}

func (f fixture) actions(t *testing.T, caseID string) []modal.AuditAction {
	t.Helper()
	entries, err := f.audit.FindByCase(context.Background(), caseID)
	require.NoError(t, err)
	out := make([]modal.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestOpenTask_AssignedToUser(t *testing.T) {
	f := newFixture(t)
	task, err := f.orch.OpenTask(context.Background(), OpenRequest{
		CaseID:      "c-1",
		Kind:        modal.KindCompleteCreation,
		Assignee:    "alice",
		Description: "finish the draft",
		Actor:       "alice",
	})
	require.NoError(t, err)

	assert.Equal(t, modal.TaskAssigned, task.Status)
	assert.Equal(t, "alice", task.Assignee)
	assert.Empty(t, task.CandidateGroup)
	assert.Equal(t, []modal.AuditAction{modal.ActionTaskCreated}, f.actions(t, "c-1"))
}

func TestOpenTask_IsIdempotentPerCaseAndKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := OpenRequest{CaseID: "c-1", Kind: modal.KindApproveCreation, Group: "approvers", Actor: "alice"}

	first, err := f.orch.OpenTask(ctx, req)
	require.NoError(t, err)
	second, err := f.orch.OpenTask(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := f.tasks.FindByCase(ctx, "c-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	// only the first call wrote, so only one audit entry
	assert.Equal(t, []modal.AuditAction{modal.ActionTaskCreated}, f.actions(t, "c-1"))
}

func TestOpenTask_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: "bogus", Group: "g"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindInvestigate})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindInvestigate, Assignee: "a", Group: "g"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCloseTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opened, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindCompleteCreation, Assignee: "alice", Actor: "alice"})
	require.NoError(t, err)

	closed, err := f.orch.CloseTask(ctx, "c-1", modal.KindCompleteCreation, "alice")
	require.NoError(t, err)
	require.NotNil(t, closed)

	assert.Equal(t, opened.ID, closed.ID)
	assert.Equal(t, modal.TaskCompleted, closed.Status)
	assert.Equal(t, modal.ResolutionDone, closed.Resolution)
	assert.Equal(t, "alice", closed.CompletedBy)
	assert.NotNil(t, closed.CompletedAt)

	// replay is a no-op
	again, err := f.orch.CloseTask(ctx, "c-1", modal.KindCompleteCreation, "alice")
	require.NoError(t, err)
	assert.Nil(t, again)

	assert.Equal(t, []modal.AuditAction{modal.ActionTaskCreated, modal.ActionTaskCompleted}, f.actions(t, "c-1"))
}

func TestCloseTask_OpensFreshTaskAfterClosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := OpenRequest{CaseID: "c-1", Kind: modal.KindCompleteCreation, Assignee: "alice", Actor: "alice"}

	first, err := f.orch.OpenTask(ctx, req)
	require.NoError(t, err)
	_, err = f.orch.CloseTask(ctx, "c-1", modal.KindCompleteCreation, "alice")
	require.NoError(t, err)
	second, err := f.orch.OpenTask(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestCancelTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindCompleteCreation, Assignee: "alice", Actor: "alice"})
	require.NoError(t, err)

	cancelled, err := f.orch.CancelTask(ctx, "c-1", modal.KindCompleteCreation, "alice", "duplicate alert")
	require.NoError(t, err)

	assert.Equal(t, modal.TaskCompleted, cancelled.Status)
	assert.Equal(t, modal.ResolutionCancelled, cancelled.Resolution)
	assert.Equal(t, []modal.AuditAction{modal.ActionTaskCreated, modal.ActionTaskCancelled}, f.actions(t, "c-1"))
}

func TestReassign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindInvestigate, Group: "investigators", Actor: "system"})
	require.NoError(t, err)

	carol := "carol"
	assigned, err := f.orch.Reassign(ctx, task.ID, &carol, "lead")
	require.NoError(t, err)
	assert.Equal(t, modal.TaskAssigned, assigned.Status)
	assert.Equal(t, "carol", assigned.Assignee)
	assert.Empty(t, assigned.CandidateGroup)

	unassigned, err := f.orch.Reassign(ctx, task.ID, nil, "lead")
	require.NoError(t, err)
	assert.Equal(t, modal.TaskUnassigned, unassigned.Status)
	assert.Empty(t, unassigned.Assignee)
	assert.Equal(t, "investigators", unassigned.CandidateGroup)

	// an unassigned task is still the outstanding one for its kind
	active, err := f.tasks.FindActiveByCaseAndKind(ctx, "c-1", modal.KindInvestigate)
	require.NoError(t, err)
	assert.Equal(t, task.ID, active.ID)

	assert.Equal(t, []modal.AuditAction{
		modal.ActionTaskCreated,
		modal.ActionTaskAssigned,
		modal.ActionTaskUnassigned,
	}, f.actions(t, "c-1"))
}

func TestReassign_UserTaskFallsBackToKindGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindCompleteCreation, Assignee: "alice", Actor: "alice"})
	require.NoError(t, err)

	unassigned, err := f.orch.Reassign(ctx, task.ID, nil, "alice")
	require.NoError(t, err)
	assert.Equal(t, "analysts", unassigned.CandidateGroup)
}

func TestReassign_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Reassign(ctx, "missing", nil, "lead")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	task, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindInvestigate, Group: "investigators", Actor: "system"})
	require.NoError(t, err)

	stranger := "mallory"
	_, err = f.orch.Reassign(ctx, task.ID, &stranger, "lead")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.orch.CloseTask(ctx, "c-1", modal.KindInvestigate, "carol")
	require.NoError(t, err)

	carol := "carol"
	_, err = f.orch.Reassign(ctx, task.ID, &carol, "lead")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-1", Kind: modal.KindCompleteCreation, Assignee: "alice", Actor: "alice"})
	require.NoError(t, err)
	_, err = f.orch.OpenTask(ctx, OpenRequest{CaseID: "c-2", Kind: modal.KindApproveCreation, Group: "approvers", Actor: "alice"})
	require.NoError(t, err)

	mine, err := f.orch.ForAssignee(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	queue, err := f.orch.ForGroup(ctx, "approvers")
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	byKind, err := f.orch.ForKind(ctx, modal.KindApproveCreation)
	require.NoError(t, err)
	assert.Len(t, byKind, 1)

	byCase, err := f.orch.ForCase(ctx, "c-2")
	require.NoError(t, err)
	assert.Len(t, byCase, 1)

	_, err = f.orch.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
