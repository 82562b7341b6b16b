package activities

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"

	"alert-case-service/internal/modal"
)

// Investigation SLAs by case priority.
const (
	SLACritical = 24 * time.Hour
	SLAHigh     = 72 * time.Hour
	SLADefault  = 7 * 24 * time.Hour
)

// SLAFor returns how long investigators have to reach a decision.
func SLAFor(priority string) time.Duration {
	switch priority {
	case "CRITICAL":
		return SLACritical
	case "HIGH":
		return SLAHigh
	default:
		return SLADefault
	}
}

// Notifier tells the investigations group that a case is waiting for them.
type Notifier interface {
	Notify(ctx context.Context, cf modal.CaseFile) error
}

// LogNotifier writes the notification to a structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, cf modal.CaseFile) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "case ready for investigation",
		slog.String("case_id", cf.CaseID),
		slog.String("case_number", cf.CaseNumber),
		slog.String("priority", cf.Priority),
		slog.Time("due_at", cf.DueAt))
	return nil
}

type Activities struct {
	Notifier Notifier
	Now      func() time.Time
}

func (a *Activities) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// BuildCaseFile assembles the investigation dossier from the hand-off request.
func (a *Activities) BuildCaseFile(ctx context.Context, req modal.InvestigationRequest) (modal.CaseFile, error) {
	if req.CaseID == "" || req.CaseNumber == "" {
		return modal.CaseFile{}, fmt.Errorf("case id and number are required, got %q/%q", req.CaseID, req.CaseNumber)
	}
	now := a.now()
	sla := SLAFor(req.Priority)
	cf := modal.CaseFile{
		CaseID:      req.CaseID,
		CaseNumber:  req.CaseNumber,
		CaseType:    req.CaseType,
		Priority:    req.Priority,
		CreatedBy:   req.CreatedBy,
		SLA:         sla,
		DueAt:       now.Add(sla),
		GeneratedAt: now,
	}
	activity.GetLogger(ctx).Info("built case file", "caseNumber", cf.CaseNumber, "sla", sla.String())
	return cf, nil
}

// NotifyInvestigators announces the case to the investigations group.
func (a *Activities) NotifyInvestigators(ctx context.Context, cf modal.CaseFile) error {
	if a.Notifier == nil {
		return nil
	}
	if err := a.Notifier.Notify(ctx, cf); err != nil {
		return fmt.Errorf("notify investigators of %s: %w", cf.CaseNumber, err)
	}
	return nil
}
