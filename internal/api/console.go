package api

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/modal"
)

// The console is a small HTML view over the same services as the JSON API:
// work queues, case lookup by number and a case detail page from which an
// investigator can record an investigation outcome.

var consoleTemplates = template.Must(template.New("console").Parse(consoleHTML))

type consoleIndexData struct {
	Tab   string
	Group string
	Query string
	Tasks []*modal.Task
	Hit   *modal.Case
	Error string
}

type consoleDetailData struct {
	Case     *modal.Case
	Tasks    []*modal.Task
	Audit    []modal.AuditEntry
	CaseFile *modal.CaseFile
	Events   []modal.InvestigationEvent
	Outcomes []modal.InvestigationOutcome
	Error    string
}

func (s *Server) consoleRoutes(r chi.Router) {
	r.Get("/", s.consoleIndex)
	r.Get("/cases/{caseId}", s.consoleDetail)
	r.Post("/cases/{caseId}/decision", s.consoleDecision)
}

// consoleIndex lists a group's work queue, or looks a case up by number.
func (s *Server) consoleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := consoleIndexData{Tab: q.Get("tab"), Group: q.Get("group"), Query: strings.TrimSpace(q.Get("q"))}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch data.Tab {
	case "search":
		if data.Query != "" {
			c, err := s.cases.GetByNumber(ctx, data.Query)
			if err != nil {
				data.Error = err.Error()
			}
			data.Hit = c
		}
	default:
		data.Tab = "queue"
		if data.Group == "" {
			data.Group = "investigators"
		}
		ts, err := s.queues.ForGroup(ctx, data.Group)
		if err != nil {
			data.Error = err.Error()
		}
		for _, t := range ts {
			if t.Status.Active() {
				data.Tasks = append(data.Tasks, t)
			}
		}
	}
	s.render(w, "index", data)
}

// consoleDetail shows a case with its tasks, audit trail and, once handed
// off, the investigation case file.
func (s *Server) consoleDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	data := consoleDetailData{Outcomes: []modal.InvestigationOutcome{
		modal.OutcomeClosedNoAction, modal.OutcomeReportFiled, modal.OutcomeEscalated,
	}}
	c, err := s.cases.Get(ctx, chi.URLParam(r, "caseId"))
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusFor(apperr.KindOf(err)))
		data.Error = err.Error()
		s.render(w, "detail", data)
		return
	}
	data.Case = c
	data.Tasks, _ = s.cases.Tasks(ctx, c.ID)
	data.Audit, _ = s.cases.AuditTrail(ctx, c.ID)

	if c.Workflow != nil && s.investigations != nil {
		// A workflow that cannot be queried still leaves the rest of the page useful.
		if cf, err := s.investigations.CaseFile(ctx, *c.Workflow); err == nil {
			data.CaseFile = &cf
		} else {
			data.Error = err.Error()
		}
		data.Events, _ = s.investigations.Events(ctx, *c.Workflow)
	}
	s.render(w, "detail", data)
}

// consoleDecision records an investigation outcome submitted from the detail page.
func (s *Server) consoleDecision(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseId")
	actor := strings.TrimSpace(r.FormValue("actor"))
	if actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}
	outcome := modal.InvestigationOutcome(r.FormValue("outcome"))
	if _, err := s.cases.ConcludeInvestigation(r.Context(), caseID, outcome, r.FormValue("notes"), actor); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/ui/cases/"+caseID, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := consoleTemplates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render console page", "page", name, "error", err)
	}
}

const consoleHTML = `
{{define "index"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Case Console</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .tabs a { margin-right: 12px; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
    .err { color: #b00020; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h2>Case Console</h2>

  <div class="tabs">
    <a href="/ui?tab=queue">Queue</a>
    <a href="/ui?tab=search">Search</a>
  </div>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{if eq .Tab "queue"}}
    <form method="get" action="/ui">
      <input type="hidden" name="tab" value="queue"/>
      <label>Group: <input name="group" value="{{.Group}}"/></label>
      <button type="submit">Show</button>
    </form>
    <h3>Open tasks for {{.Group}}</h3>
    <table>
      <thead><tr><th>Task</th><th>Kind</th><th>Status</th><th>Assignee</th><th>Case</th></tr></thead>
      <tbody>
      {{range .Tasks}}
        <tr>
          <td>{{.Description}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Status}}</td>
          <td>{{if .Assignee}}{{.Assignee}}{{else}}<span class="muted">unassigned</span>{{end}}</td>
          <td><a href="/ui/cases/{{.CaseID}}">{{.CaseID}}</a></td>
        </tr>
      {{else}}
        <tr><td colspan="5" class="muted">No open tasks</td></tr>
      {{end}}
      </tbody>
    </table>
  {{else}}
    <h3>Find a case by number</h3>
    <form method="get" action="/ui">
      <input type="hidden" name="tab" value="search"/>
      <input name="q" placeholder="CASE-2026-0001" value="{{.Query}}" style="width: 320px;"/>
      <button type="submit">Search</button>
    </form>
    {{with .Hit}}
      <p><a href="/ui/cases/{{.ID}}">{{.CaseNumber}}</a> ({{.Status}})</p>
    {{end}}
  {{end}}
</body>
</html>
{{end}}

{{define "detail"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Case Detail</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .err { color: #b00020; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
  </style>
</head>
<body>
  <a href="/ui">Back</a>
  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{with .Case}}
  <h2>{{.CaseNumber}}</h2>
  <p><b>Status:</b> {{.Status}}<br/>
     <b>Created by:</b> {{.CreatedBy}}<br/>
     {{with .Workflow}}<b>Workflow:</b> {{.WorkflowID}}{{end}}</p>
  {{end}}

  {{with .CaseFile}}
  <h3>Investigation</h3>
  <p><b>Due:</b> {{.DueAt}}{{if .SLABreached}} <span class="err">SLA breached</span>{{end}}</p>
  {{with .Decision}}
    <p><b>Outcome:</b> {{.Outcome}} by {{.Decider}}<br/>{{.Notes}}</p>
  {{else}}
    <form method="post" action="/ui/cases/{{$.Case.ID}}/decision">
      <label>Investigator: <input name="actor"/></label><br/><br/>
      <label>Outcome:
        <select name="outcome">{{range $.Outcomes}}<option value="{{.}}">{{.}}</option>{{end}}</select>
      </label><br/><br/>
      <label>Notes:<br/><textarea name="notes" rows="3" cols="80"></textarea></label><br/><br/>
      <button type="submit">Conclude</button>
    </form>
  {{end}}
  {{end}}

  {{if .Case}}
  <h3>Tasks</h3>
  <table>
    <thead><tr><th>Kind</th><th>Status</th><th>Assignee</th><th>Group</th><th>Resolution</th></tr></thead>
    <tbody>
      {{range .Tasks}}
        <tr><td>{{.Kind}}</td><td>{{.Status}}</td><td>{{.Assignee}}</td><td>{{.CandidateGroup}}</td><td>{{.Resolution}}</td></tr>
      {{end}}
    </tbody>
  </table>

  <h3>Audit Trail</h3>
  <table>
    <thead><tr><th>Time</th><th>Action</th><th>Actor</th><th>Details</th></tr></thead>
    <tbody>
      {{range .Audit}}
        <tr><td>{{.Timestamp}}</td><td>{{.Action}}</td><td>{{.Actor}}</td><td>{{.Details}}</td></tr>
      {{end}}
    </tbody>
  </table>
  {{end}}

  {{if .Events}}
  <h3>Workflow History</h3>
  <table>
    <thead><tr><th>Time</th><th>Kind</th><th>Message</th></tr></thead>
    <tbody>
      {{range .Events}}
        <tr><td>{{.At}}</td><td>{{.Kind}}</td><td>{{.Message}}</td></tr>
      {{end}}
    </tbody>
  </table>
  {{end}}
</body>
</html>
{{end}}
`
