package modal

import "time"

// InvestigationRequest is the input handed to the investigation process when a
// case first becomes ready for assignment.
type InvestigationRequest struct {
	CaseID     string `json:"caseId"`
	CaseNumber string `json:"caseNumber"`
	CaseType   string `json:"caseType"`
	Priority   string `json:"priority"`
	CreatedBy  string `json:"createdBy"`
}

// CaseFile is the working dossier the investigation process keeps for a case.
type CaseFile struct {
	CaseID      string                 `json:"caseId"`
	CaseNumber  string                 `json:"caseNumber"`
	CaseType    string                 `json:"caseType"`
	Priority    string                 `json:"priority"`
	CreatedBy   string                 `json:"createdBy"`
	SLA         time.Duration          `json:"sla"`
	DueAt       time.Time              `json:"dueAt"`
	SLABreached bool                   `json:"slaBreached"`
	Decision    *InvestigationDecision `json:"decision,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// InvestigationEvent is one step in the investigation process's own history.
type InvestigationEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
