package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/audit"
	"alert-case-service/internal/modal"
	"alert-case-service/internal/tasks"
)

const completeCreationDescription = "Complete the case creation with all required details"

// Create validates fields and persists a new Draft case, then opens the
// complete-creation task for its creator.
func (e *Engine) Create(ctx context.Context, fields modal.CaseFields, actor string) (c *modal.Case, err error) {
	const action = "create"
	ctx, o := e.begin(ctx, action, "", actor)
	defer func() { o.end(err) }()

	if actor == "" {
		return nil, apperr.Validationf(action, "actor is required")
	}
	if verr := e.validator.Validate(action, fields); verr != nil {
		return nil, verr
	}

	seq, err := e.cases.NextSequenceNumber(ctx)
	if err != nil {
		return nil, e.storeErr(action, nil, err)
	}
	now := e.now()
	draft := &modal.Case{
		ID:         uuid.NewString(),
		CaseNumber: fmt.Sprintf("CASE-%d-%04d", now.Year(), seq),
		Status:     modal.StatusDraft,
		CreatedBy:  actor,
		CreatedAt:  now,
	}
	fields.ApplyTo(draft)

	release, err := e.lease(ctx, action, draft.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	saved, err := e.save(ctx, action, nil, draft, actor)
	if err != nil {
		return nil, err
	}
	e.audit.Record(ctx, audit.Entry{
		CaseID:  saved.ID,
		Action:  modal.ActionCaseCreated,
		Actor:   actor,
		Details: fmt.Sprintf("Case created with type: %s, priority: %s", modal.StringValue(saved.CaseType), modal.StringValue(saved.Priority)),
	})
	e.logger.Info("case created",
		slog.String("case_id", saved.ID),
		slog.String("case_number", saved.CaseNumber),
		slog.String("actor", actor))

	if _, err := e.orch.OpenTask(ctx, tasks.OpenRequest{
		CaseID:      saved.ID,
		Kind:        modal.KindCompleteCreation,
		Assignee:    actor,
		Description: completeCreationDescription,
		Actor:       actor,
	}); err != nil {
		return nil, e.effectFailed(action, saved, effectTasks, err)
	}
	return saved, nil
}

// Edit applies a partial update to a Draft case. Once every mandatory field
// is populated the case moves on to pending approval.
func (e *Engine) Edit(ctx context.Context, caseID string, fields modal.CaseFields, actor string) (c *modal.Case, err error) {
	const action = "edit"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusDraft {
			return nil, apperr.InvalidStatef(action, "only %s cases can be edited", modal.StatusDraft).WithCase(cur)
		}
		if verr := e.validator.Validate(action, fields); verr != nil {
			return nil, verr.WithCase(cur)
		}

		next := cur.Clone()
		fields.ApplyTo(next)
		if mandatoryFieldsComplete(next) {
			next.Status = modal.StatusPendingApproval
		}
		saved, err := e.save(ctx, action, cur, next, actor)
		if err != nil {
			return nil, err
		}
		e.audit.Record(ctx, audit.Entry{
			CaseID:  saved.ID,
			Action:  modal.ActionCaseUpdated,
			Actor:   actor,
			Details: "Case details updated",
		})

		if saved.Status == cur.Status {
			return saved, nil
		}
		if err := e.requestApproval(ctx, saved, actor); err != nil {
			return nil, e.effectFailed(action, saved, effectTasks, err)
		}
		return saved, nil
	})
}

// Complete submits a Draft case. Cases the approval gate flags wait for an
// approver; the rest become ready for assignment and are handed off.
func (e *Engine) Complete(ctx context.Context, caseID string, fields modal.CaseFields, actor string) (c *modal.Case, err error) {
	const action = "complete"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusDraft {
			return nil, apperr.InvalidStatef(action, "only %s cases can be completed", modal.StatusDraft).WithCase(cur)
		}
		if verr := e.validator.Validate(action, fields); verr != nil {
			return nil, verr.WithCase(cur)
		}

		next := cur.Clone()
		fields.ApplyTo(next)
		if missing := missingForCompletion(next); len(missing) > 0 {
			return nil, apperr.Validationf(action, "missing required fields: %s", strings.Join(missing, ", ")).WithCase(cur)
		}

		needsApproval := e.gate.RequiresApprovalFor(next)
		if needsApproval {
			next.Status = modal.StatusPendingApproval
		} else {
			next.Status = modal.StatusReadyForAssignment
		}
		saved, err := e.save(ctx, action, cur, next, actor)
		if err != nil {
			return nil, err
		}
		e.audit.Record(ctx, audit.Entry{
			CaseID:  saved.ID,
			Action:  modal.ActionCaseCompleted,
			Actor:   actor,
			Details: fmt.Sprintf("Case completed with status: %s", saved.Status),
		})

		if needsApproval {
			if err := e.requestApproval(ctx, saved, actor); err != nil {
				return nil, e.effectFailed(action, saved, effectTasks, err)
			}
			return saved, nil
		}
		if _, err := e.orch.CloseTask(ctx, saved.ID, modal.KindCompleteCreation, actor); err != nil {
			return nil, e.effectFailed(action, saved, effectTasks, err)
		}
		return e.handoff(ctx, action, saved, actor)
	})
}

// Approve records an approver's verdict on a case pending approval.
// Rejection sends the case back to its creator as a Draft.
func (e *Engine) Approve(ctx context.Context, caseID string, approved bool, comments, actor string) (c *modal.Case, err error) {
	const action = "approve"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusPendingApproval {
			return nil, apperr.InvalidStatef(action, "only %s cases can be approved or rejected", modal.StatusPendingApproval).WithCase(cur)
		}
		if !e.authz.CanApprove(ctx, actor, cur) {
			return nil, e.denied(ctx, action, cur, actor, actor+" lacks approval rights")
		}

		next := cur.Clone()
		if approved {
			next.Status = modal.StatusReadyForAssignment
		} else {
			next.Status = modal.StatusDraft
		}
		saved, err := e.save(ctx, action, cur, next, actor)
		if err != nil {
			return nil, err
		}

		if !approved {
			e.audit.Record(ctx, audit.Entry{
				CaseID:  saved.ID,
				Action:  modal.ActionCaseRejected,
				Actor:   actor,
				Details: "Case rejected. Comments: " + comments,
			})
			if err := e.returnToCreator(ctx, saved, comments, actor); err != nil {
				return nil, e.effectFailed(action, saved, effectTasks, err)
			}
			return saved, nil
		}

		e.audit.Record(ctx, audit.Entry{
			CaseID:  saved.ID,
			Action:  modal.ActionCaseApproved,
			Actor:   actor,
			Details: "Case approved. Comments: " + comments,
		})
		if _, err := e.orch.CloseTask(ctx, saved.ID, modal.KindApproveCreation, actor); err != nil {
			return nil, e.effectFailed(action, saved, effectTasks, err)
		}
		return e.handoff(ctx, action, saved, actor)
	})
}

// Abandon ends a Draft case at its creator's request.
func (e *Engine) Abandon(ctx context.Context, caseID, actor, reason string) (c *modal.Case, err error) {
	const action = "abandon"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusDraft {
			return nil, apperr.InvalidStatef(action, "only %s cases can be abandoned", modal.StatusDraft).WithCase(cur)
		}
		if !e.authz.CanAbandon(ctx, actor, cur) {
			return nil, e.denied(ctx, action, cur, actor, "only the case creator can abandon a case")
		}

		next := cur.Clone()
		next.Status = modal.StatusAbandoned
		saved, err := e.save(ctx, action, cur, next, actor)
		if err != nil {
			return nil, err
		}
		e.audit.Record(ctx, audit.Entry{
			CaseID:  saved.ID,
			Action:  modal.ActionCaseAbandoned,
			Actor:   actor,
			Details: "Case abandoned. Reason: " + reason,
		})
		if _, err := e.orch.CancelTask(ctx, saved.ID, modal.KindCompleteCreation, actor, reason); err != nil {
			return nil, e.effectFailed(action, saved, effectTasks, err)
		}
		return saved, nil
	})
}

// Delete physically removes a Draft case owned by actor. Its outstanding
// tasks are cancelled and a final CASE_DELETED entry is written first.
func (e *Engine) Delete(ctx context.Context, caseID, actor string) (err error) {
	const action = "delete"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	_, err = e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusDraft {
			return nil, e.denied(ctx, action, cur, actor, fmt.Sprintf("only %s cases can be deleted", modal.StatusDraft))
		}
		if !e.authz.CanDelete(ctx, actor, cur) {
			return nil, e.denied(ctx, action, cur, actor, "only the case creator can delete a case")
		}

		open, err := e.orch.ForCase(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range open {
			if !t.Status.Active() {
				continue
			}
			if _, err := e.orch.CancelTask(ctx, cur.ID, t.Kind, actor, "case deleted"); err != nil {
				return nil, err
			}
		}

		e.audit.Record(ctx, audit.Entry{
			CaseID:   cur.ID,
			Action:   modal.ActionCaseDeleted,
			Actor:    actor,
			Details:  "Case deleted: " + cur.CaseNumber,
			OldValue: string(cur.Status),
		})
		if err := e.cases.Delete(ctx, cur); err != nil {
			return nil, e.storeErr(action, cur, err)
		}
		e.logger.Info("case deleted",
			slog.String("case_id", cur.ID),
			slog.String("case_number", cur.CaseNumber),
			slog.String("actor", actor))
		return cur, nil
	})
	return err
}

// SetStatus overwrites the status without any guard or side effect other
// than the STATUS_CHANGE entry. It exists for administrative repair and
// never starts a workflow or touches tasks.
func (e *Engine) SetStatus(ctx context.Context, caseID string, status modal.CaseStatus, actor string) (c *modal.Case, err error) {
	const action = "set_status"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	if !status.Valid() {
		return nil, apperr.Validationf(action, "unknown case status %q", status).WithCaseID(caseID)
	}
	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status == status {
			return cur, nil
		}
		next := cur.Clone()
		next.Status = status
		saved, err := e.save(ctx, action, cur, next, actor)
		if err != nil {
			return nil, err
		}
		e.logger.Warn("case status overridden",
			slog.String("case_id", saved.ID),
			slog.String("from", string(cur.Status)),
			slog.String("to", string(status)),
			slog.String("actor", actor))
		return saved, nil
	})
}

// ResumeHandoff retries the investigate task and workflow start for a ready
// case whose hand-off previously failed. It is a no-op once both exist.
func (e *Engine) ResumeHandoff(ctx context.Context, caseID, actor string) (c *modal.Case, err error) {
	const action = "resume_handoff"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusReadyForAssignment {
			return nil, apperr.InvalidStatef(action, "only %s cases are handed off", modal.StatusReadyForAssignment).WithCase(cur)
		}
		return e.handoff(ctx, action, cur, actor)
	})
}

// ReassignTask moves a task to another user, or back to its group when
// assignee is nil, under the lease of the task's case.
func (e *Engine) ReassignTask(ctx context.Context, taskID string, assignee *string, actor string) (t *modal.Task, err error) {
	const action = "reassign_task"
	ctx, o := e.begin(ctx, action, "", actor)
	defer func() { o.end(err) }()

	cur, err := e.orch.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	release, err := e.lease(ctx, action, cur.CaseID)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.orch.Reassign(ctx, taskID, assignee, actor)
}

// ConcludeInvestigation delivers the investigator's decision to the running
// investigation workflow and completes the investigate task.
func (e *Engine) ConcludeInvestigation(ctx context.Context, caseID string, outcome modal.InvestigationOutcome, notes, actor string) (c *modal.Case, err error) {
	const action = "conclude_investigation"
	ctx, o := e.begin(ctx, action, caseID, actor)
	defer func() { o.end(err) }()

	if !outcome.Valid() {
		return nil, apperr.Validationf(action, "unknown investigation outcome %q", outcome).WithCaseID(caseID)
	}
	return e.withCase(ctx, action, caseID, func(cur *modal.Case) (*modal.Case, error) {
		if cur.Status != modal.StatusReadyForAssignment || cur.Workflow == nil {
			return nil, apperr.InvalidStatef(action, "case has no running investigation").WithCase(cur)
		}
		all, err := e.orch.ForCase(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		if !hasActive(all, modal.KindInvestigate) {
			return nil, apperr.InvalidStatef(action, "investigation already concluded").WithCase(cur)
		}

		decision := modal.InvestigationDecision{
			Outcome:   outcome,
			Notes:     notes,
			Decider:   actor,
			DecidedAt: e.now(),
		}
		if err := e.bridge.Decide(ctx, *cur.Workflow, decision); err != nil {
			ae := apperr.Wrap(apperr.KindUnknown, action, err).WithCase(cur)
			ae.Msg = "could not deliver decision to investigation workflow"
			return nil, ae
		}
		e.audit.Record(ctx, audit.Entry{
			CaseID:   cur.ID,
			Action:   modal.ActionInvestigationConcluded,
			Actor:    actor,
			Details:  fmt.Sprintf("Investigation concluded: %s. Notes: %s", outcome, notes),
			NewValue: string(outcome),
		})
		if _, err := e.orch.CloseTask(ctx, cur.ID, modal.KindInvestigate, actor); err != nil {
			return nil, e.effectFailed(action, cur, effectTasks, err)
		}
		return cur, nil
	})
}

// requestApproval moves the work from the creator to the approver group.
func (e *Engine) requestApproval(ctx context.Context, c *modal.Case, actor string) error {
	if _, err := e.orch.CloseTask(ctx, c.ID, modal.KindCompleteCreation, actor); err != nil {
		return err
	}
	_, err := e.orch.OpenTask(ctx, tasks.OpenRequest{
		CaseID:      c.ID,
		Kind:        modal.KindApproveCreation,
		Group:       e.groups.Approvers,
		Description: "Review and approve case creation for case: " + c.CaseNumber,
		Actor:       actor,
	})
	return err
}

// returnToCreator moves the work from the approver group back to the creator.
func (e *Engine) returnToCreator(ctx context.Context, c *modal.Case, reason, actor string) error {
	if _, err := e.orch.CloseTask(ctx, c.ID, modal.KindApproveCreation, actor); err != nil {
		return err
	}
	_, err := e.orch.OpenTask(ctx, tasks.OpenRequest{
		CaseID:      c.ID,
		Kind:        modal.KindCompleteCreation,
		Assignee:    c.CreatedBy,
		Description: "Case was rejected. Please revise and resubmit. Reason: " + reason,
		Actor:       actor,
	})
	return err
}

// handoff opens the investigate task and starts the investigation workflow
// for a ready case. Both steps are skipped when already done, which makes it
// the retry path for a failed hand-off as well.
func (e *Engine) handoff(ctx context.Context, action string, c *modal.Case, actor string) (*modal.Case, error) {
	all, err := e.orch.ForCase(ctx, c.ID)
	if err != nil {
		return nil, e.effectFailed(action, c, effectTasks, err)
	}
	if !hasKind(all, modal.KindInvestigate) {
		if _, err := e.orch.OpenTask(ctx, tasks.OpenRequest{
			CaseID:      c.ID,
			Kind:        modal.KindInvestigate,
			Group:       e.groups.Investigators,
			Description: "Investigate case " + c.CaseNumber,
			Actor:       actor,
		}); err != nil {
			return nil, e.effectFailed(action, c, effectTasks, err)
		}
	}

	if c.Workflow != nil {
		return c, nil
	}
	h, err := e.bridge.Start(ctx, modal.InvestigationRequest{
		CaseID:     c.ID,
		CaseNumber: c.CaseNumber,
		CaseType:   modal.StringValue(c.CaseType),
		Priority:   modal.StringValue(c.Priority),
		CreatedBy:  c.CreatedBy,
	})
	if err != nil {
		return nil, e.effectFailed(action, c, effectWorkflow, err)
	}

	next := c.Clone()
	next.Workflow = &h
	saved, err := e.save(ctx, action, c, next, actor)
	if err != nil {
		return nil, e.effectFailed(action, c, effectWorkflow, err)
	}
	e.audit.Record(ctx, audit.Entry{
		CaseID:   saved.ID,
		Action:   modal.ActionWorkflowStarted,
		Actor:    actor,
		Details:  fmt.Sprintf("Investigation workflow %s started", h.WorkflowID),
		NewValue: h.RunID,
	})
	e.logger.Info("investigation workflow started",
		slog.String("case_id", saved.ID),
		slog.String("workflow_id", h.WorkflowID),
		slog.String("run_id", h.RunID))
	return saved, nil
}

func mandatoryFieldsComplete(c *modal.Case) bool {
	return notBlank(c.Description) &&
		notBlank(c.CaseType) &&
		notBlank(c.Priority) &&
		c.RiskScore != nil && *c.RiskScore > 0
}

func missingForCompletion(c *modal.Case) []string {
	var missing []string
	if !notBlank(c.Description) {
		missing = append(missing, "description")
	}
	if !notBlank(c.Entity) {
		missing = append(missing, "entity")
	}
	if c.RiskScore == nil {
		missing = append(missing, "riskScore")
	}
	return missing
}

func notBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func hasKind(ts []*modal.Task, kind modal.TaskKind) bool {
	for _, t := range ts {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

func hasActive(ts []*modal.Task, kind modal.TaskKind) bool {
	for _, t := range ts {
		if t.Kind == kind && t.Status.Active() {
			return true
		}
	}
	return false
}
