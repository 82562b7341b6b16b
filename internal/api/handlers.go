package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/lifecycle"
	"alert-case-service/internal/modal"
)

type approvalReq struct {
	Approved *bool  `json:"approved"`
	Comments string `json:"comments"`
}

type abandonReq struct {
	Reason string `json:"reason"`
}

type statusReq struct {
	Status modal.CaseStatus `json:"status"`
}

type assignReq struct {
	Assignee *string `json:"assignee"`
}

type decisionReq struct {
	Outcome modal.InvestigationOutcome `json:"outcome"`
	Notes   string                     `json:"notes"`
}

type investigationResp struct {
	Workflow modal.WorkflowHandle       `json:"workflow"`
	CaseFile modal.CaseFile             `json:"caseFile"`
	Events   []modal.InvestigationEvent `json:"events"`
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validationf("decode", "invalid body: %v", err)
	}
	return nil
}

func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	var fields modal.CaseFields
	if err := decode(r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.Create(r.Context(), fields, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/cases/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.cases.List(r.Context(), lifecycle.CaseFilter{
		Status:    modal.CaseStatus(q.Get("status")),
		CreatedBy: q.Get("createdBy"),
		AlertID:   q.Get("alertId"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*modal.Case{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) countCases(w http.ResponseWriter, r *http.Request) {
	counts, err := s.cases.CountByStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) getCaseByNumber(w http.ResponseWriter, r *http.Request) {
	c, err := s.cases.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) getCase(w http.ResponseWriter, r *http.Request) {
	c, err := s.cases.Get(r.Context(), chi.URLParam(r, "caseId"))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) editCase(w http.ResponseWriter, r *http.Request) {
	var fields modal.CaseFields
	if err := decode(r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.Edit(r.Context(), chi.URLParam(r, "caseId"), fields, actorFrom(r))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) deleteCase(w http.ResponseWriter, r *http.Request) {
	if err := s.cases.Delete(r.Context(), chi.URLParam(r, "caseId"), actorFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeCase(w http.ResponseWriter, r *http.Request) {
	var fields modal.CaseFields
	if err := decode(r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.Complete(r.Context(), chi.URLParam(r, "caseId"), fields, actorFrom(r))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) approveCase(w http.ResponseWriter, r *http.Request) {
	var req approvalReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Approved == nil {
		s.writeError(w, r, apperr.Validationf("approve", "approved is required").WithCaseID(chi.URLParam(r, "caseId")))
		return
	}
	c, err := s.cases.Approve(r.Context(), chi.URLParam(r, "caseId"), *req.Approved, req.Comments, actorFrom(r))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) abandonCase(w http.ResponseWriter, r *http.Request) {
	var req abandonReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.Abandon(r.Context(), chi.URLParam(r, "caseId"), actorFrom(r), req.Reason)
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) resumeHandoff(w http.ResponseWriter, r *http.Request) {
	c, err := s.cases.ResumeHandoff(r.Context(), chi.URLParam(r, "caseId"), actorFrom(r))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.SetStatus(r.Context(), chi.URLParam(r, "caseId"), req.Status, actorFrom(r))
	s.respondCase(w, r, http.StatusOK, c, err)
}

func (s *Server) caseTasks(w http.ResponseWriter, r *http.Request) {
	out, err := s.cases.Tasks(r.Context(), chi.URLParam(r, "caseId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTasks(w, out)
}

func (s *Server) caseAudit(w http.ResponseWriter, r *http.Request) {
	out, err := s.cases.AuditTrail(r.Context(), chi.URLParam(r, "caseId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAudit(w, out)
}

func (s *Server) actorAudit(w http.ResponseWriter, r *http.Request) {
	out, err := s.cases.ActorHistory(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAudit(w, out)
}

func (s *Server) getInvestigation(w http.ResponseWriter, r *http.Request) {
	c, err := s.cases.Get(r.Context(), chi.URLParam(r, "caseId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.Workflow == nil {
		s.writeError(w, r, apperr.NotFoundf("get_investigation", "case has no investigation").WithCase(c))
		return
	}
	if s.investigations == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "investigations are not available", Kind: "unavailable"})
		return
	}

	cf, err := s.investigations.CaseFile(r.Context(), *c.Workflow)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read investigation case file: %w", err))
		return
	}
	events, err := s.investigations.Events(r.Context(), *c.Workflow)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read investigation events: %w", err))
		return
	}
	if events == nil {
		events = []modal.InvestigationEvent{}
	}
	writeJSON(w, http.StatusOK, investigationResp{Workflow: *c.Workflow, CaseFile: cf, Events: events})
}

func (s *Server) decideInvestigation(w http.ResponseWriter, r *http.Request) {
	var req decisionReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.ConcludeInvestigation(r.Context(), chi.URLParam(r, "caseId"), req.Outcome, req.Notes, actorFrom(r))
	s.respondCase(w, r, http.StatusOK, c, err)
}

// listTasks serves one queue: ?assignee=, ?group= or ?kind=.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		out []*modal.Task
		err error
	)
	switch {
	case q.Get("assignee") != "":
		out, err = s.queues.ForAssignee(r.Context(), q.Get("assignee"))
	case q.Get("group") != "":
		out, err = s.queues.ForGroup(r.Context(), q.Get("group"))
	case q.Get("kind") != "":
		kind := modal.TaskKind(q.Get("kind"))
		if !kind.Valid() {
			err = apperr.Validationf("list_tasks", "unknown task kind %q", kind)
			break
		}
		out, err = s.queues.ForKind(r.Context(), kind)
	default:
		err = apperr.Validationf("list_tasks", "one of assignee, group or kind is required")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTasks(w, out)
}

func (s *Server) assignTask(w http.ResponseWriter, r *http.Request) {
	var req assignReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.cases.ReassignTask(r.Context(), chi.URLParam(r, "taskId"), req.Assignee, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) respondCase(w http.ResponseWriter, r *http.Request, code int, c *modal.Case, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, code, c)
}

func writeTasks(w http.ResponseWriter, out []*modal.Task) {
	if out == nil {
		out = []*modal.Task{}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeAudit(w http.ResponseWriter, out []modal.AuditEntry) {
	if out == nil {
		out = []modal.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, out)
}
