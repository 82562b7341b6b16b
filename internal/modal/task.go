package modal

import "time"

type Task struct {
	ID             string         `json:"id"`
	CaseID         string         `json:"caseId"`
	Kind           TaskKind       `json:"kind"`
	Status         TaskStatus     `json:"status"`
	Assignee       string         `json:"assignee,omitempty"`
	CandidateGroup string         `json:"candidateGroup,omitempty"`
	Description    string         `json:"description"`
	Resolution     TaskResolution `json:"resolution,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	CompletedBy    string         `json:"completedBy,omitempty"`
}

// InvestigationDecision is the human verdict that ends an investigation.
type InvestigationDecision struct {
	Outcome   InvestigationOutcome `json:"outcome"`
	Notes     string               `json:"notes"`
	Decider   string               `json:"decider"`
	DecidedAt time.Time            `json:"decidedAt"`
}
