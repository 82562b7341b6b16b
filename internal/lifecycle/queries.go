package lifecycle

import (
	"context"
	"errors"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/modal"
	"alert-case-service/internal/store"
)

// Reads take no lease. They see the last committed write of each case.

func (e *Engine) Get(ctx context.Context, caseID string) (*modal.Case, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.load(ctx, "get", caseID)
}

func (e *Engine) GetByNumber(ctx context.Context, number string) (*modal.Case, error) {
	const action = "get_by_number"
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	c, err := e.cases.FindByCaseNumber(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf(action, "case %s not found", number)
	}
	if err != nil {
		return nil, e.storeErr(action, nil, err)
	}
	return c, nil
}

// CaseFilter narrows List. At most one field may be set; none lists every case.
type CaseFilter struct {
	Status    modal.CaseStatus
	CreatedBy string
	AlertID   string
}

func (e *Engine) List(ctx context.Context, f CaseFilter) ([]*modal.Case, error) {
	const action = "list"
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	set := 0
	for _, v := range []string{string(f.Status), f.CreatedBy, f.AlertID} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, apperr.Validationf(action, "filter by at most one of status, createdBy and alertId")
	}

	var (
		out []*modal.Case
		err error
	)
	switch {
	case f.Status != "":
		if !f.Status.Valid() {
			return nil, apperr.Validationf(action, "unknown case status %q", f.Status)
		}
		out, err = e.cases.FindByStatus(ctx, f.Status)
	case f.CreatedBy != "":
		out, err = e.cases.FindByCreator(ctx, f.CreatedBy)
	case f.AlertID != "":
		out, err = e.cases.FindByAlertID(ctx, f.AlertID)
	default:
		out, err = e.cases.List(ctx)
	}
	if err != nil {
		return nil, e.storeErr(action, nil, err)
	}
	return out, nil
}

// CountByStatus returns the number of cases in every defined status.
func (e *Engine) CountByStatus(ctx context.Context) (map[modal.CaseStatus]int, error) {
	const action = "count_by_status"
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	counts := make(map[modal.CaseStatus]int)
	for _, s := range modal.CaseStatuses() {
		n, err := e.cases.CountByStatus(ctx, s)
		if err != nil {
			return nil, e.storeErr(action, nil, err)
		}
		counts[s] = n
	}
	return counts, nil
}

// AuditTrail returns the entries recorded against a case, oldest first.
// Entries outlive the case, so a deleted case still has a trail.
func (e *Engine) AuditTrail(ctx context.Context, caseID string) ([]modal.AuditEntry, error) {
	const action = "audit_trail"
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.trail.FindByCase(ctx, caseID)
	if err != nil {
		return nil, e.storeErr(action, &modal.Case{ID: caseID}, err)
	}
	return out, nil
}

func (e *Engine) ActorHistory(ctx context.Context, actor string) ([]modal.AuditEntry, error) {
	const action = "actor_history"
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.trail.FindByActor(ctx, actor)
	if err != nil {
		return nil, e.storeErr(action, nil, err)
	}
	return out, nil
}

// Tasks returns every task of a case, open and closed.
func (e *Engine) Tasks(ctx context.Context, caseID string) ([]*modal.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.orch.ForCase(ctx, caseID)
}
