package modal

import "time"

// AuditEntry is an immutable record of an action taken against a case or task.
type AuditEntry struct {
	ID        string      `json:"id"`
	CaseID    string      `json:"caseId,omitempty"`
	TaskID    string      `json:"taskId,omitempty"`
	Action    AuditAction `json:"action"`
	Actor     string      `json:"actor"`
	Details   string      `json:"details"`
	OldValue  string      `json:"oldValue,omitempty"`
	NewValue  string      `json:"newValue,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
