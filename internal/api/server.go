// Package api exposes the case lifecycle over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"alert-case-service/internal/config"
	"alert-case-service/internal/lifecycle"
	"alert-case-service/internal/modal"
)

// CaseService is the lifecycle surface the handlers drive. *lifecycle.Engine satisfies it.
type CaseService interface {
	Create(ctx context.Context, fields modal.CaseFields, actor string) (*modal.Case, error)
	Edit(ctx context.Context, caseID string, fields modal.CaseFields, actor string) (*modal.Case, error)
	Complete(ctx context.Context, caseID string, fields modal.CaseFields, actor string) (*modal.Case, error)
	Approve(ctx context.Context, caseID string, approved bool, comments, actor string) (*modal.Case, error)
	Abandon(ctx context.Context, caseID, actor, reason string) (*modal.Case, error)
	Delete(ctx context.Context, caseID, actor string) error
	SetStatus(ctx context.Context, caseID string, status modal.CaseStatus, actor string) (*modal.Case, error)
	ResumeHandoff(ctx context.Context, caseID, actor string) (*modal.Case, error)
	ReassignTask(ctx context.Context, taskID string, assignee *string, actor string) (*modal.Task, error)
	ConcludeInvestigation(ctx context.Context, caseID string, outcome modal.InvestigationOutcome, notes, actor string) (*modal.Case, error)

	Get(ctx context.Context, caseID string) (*modal.Case, error)
	GetByNumber(ctx context.Context, number string) (*modal.Case, error)
	List(ctx context.Context, f lifecycle.CaseFilter) ([]*modal.Case, error)
	CountByStatus(ctx context.Context) (map[modal.CaseStatus]int, error)
	AuditTrail(ctx context.Context, caseID string) ([]modal.AuditEntry, error)
	ActorHistory(ctx context.Context, actor string) ([]modal.AuditEntry, error)
	Tasks(ctx context.Context, caseID string) ([]*modal.Task, error)
}

// TaskQueues lists work queues. *tasks.Orchestrator satisfies it.
type TaskQueues interface {
	ForAssignee(ctx context.Context, assignee string) ([]*modal.Task, error)
	ForGroup(ctx context.Context, group string) ([]*modal.Task, error)
	ForKind(ctx context.Context, kind modal.TaskKind) ([]*modal.Task, error)
}

// Investigations reads the state of running investigation workflows.
// *workflows.TemporalBridge satisfies it.
type Investigations interface {
	CaseFile(ctx context.Context, h modal.WorkflowHandle) (modal.CaseFile, error)
	Events(ctx context.Context, h modal.WorkflowHandle) ([]modal.InvestigationEvent, error)
}

type Server struct {
	cases          CaseService
	queues         TaskQueues
	investigations Investigations
	gatherer       prometheus.Gatherer
	limiter        *actorLimiter
	logger         *slog.Logger
}

func NewServer(cfg config.HTTP, cases CaseService, queues TaskQueues, inv Investigations, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cases:          cases,
		queues:         queues,
		investigations: inv,
		gatherer:       gatherer,
		limiter:        newActorLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:         logger,
	}
}

// Routes builds the HTTP handler. Every /cases and /tasks route requires the
// X-Actor header naming the caller; the /ui console takes the actor from its
// decision form instead.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/ui", s.consoleRoutes)

	r.Group(func(r chi.Router) {
		r.Use(requireActor)
		r.Use(s.rateLimit)

		r.Route("/cases", func(r chi.Router) {
			r.Post("/", s.createCase)
			r.Get("/", s.listCases)
			r.Get("/counts", s.countCases)
			r.Get("/by-number/{number}", s.getCaseByNumber)

			r.Route("/{caseId}", func(r chi.Router) {
				r.Get("/", s.getCase)
				r.Patch("/", s.editCase)
				r.Delete("/", s.deleteCase)
				r.Post("/complete", s.completeCase)
				r.Post("/approval", s.approveCase)
				r.Post("/abandon", s.abandonCase)
				r.Post("/handoff", s.resumeHandoff)
				r.Put("/status", s.setStatus)
				r.Get("/tasks", s.caseTasks)
				r.Get("/audit", s.caseAudit)
				r.Get("/investigation", s.getInvestigation)
				r.Post("/investigation/decision", s.decideInvestigation)
			})
		})

		r.Get("/tasks", s.listTasks)
		r.Post("/tasks/{taskId}/assign", s.assignTask)
		r.Get("/actors/{actor}/audit", s.actorAudit)
	})

	return otelhttp.NewHandler(r, "cases-api")
}
