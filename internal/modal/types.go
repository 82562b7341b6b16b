package modal

import "fmt"

type CaseStatus string

const (
	StatusDraft              CaseStatus = "DRAFT"
	StatusPendingApproval    CaseStatus = "PENDING_CASE_CREATION_APPROVAL"
	StatusReadyForAssignment CaseStatus = "READY_FOR_ASSIGNMENT"
	StatusAbandoned          CaseStatus = "ABANDONED"
	StatusRejected           CaseStatus = "REJECTED"
)

var caseStatuses = []CaseStatus{
	StatusDraft,
	StatusPendingApproval,
	StatusReadyForAssignment,
	StatusAbandoned,
	StatusRejected,
}

// CaseStatuses lists every defined case status in lifecycle order.
func CaseStatuses() []CaseStatus {
	out := make([]CaseStatus, len(caseStatuses))
	copy(out, caseStatuses)
	return out
}

func (s CaseStatus) Valid() bool {
	for _, v := range caseStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle action applies to the status.
func (s CaseStatus) Terminal() bool {
	return s == StatusReadyForAssignment || s == StatusAbandoned || s == StatusRejected
}

func ParseCaseStatus(v string) (CaseStatus, error) {
	s := CaseStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown case status %q", v)
	}
	return s, nil
}

type TaskKind string

const (
	KindCompleteCreation TaskKind = "complete-creation"
	KindApproveCreation  TaskKind = "approve-creation"
	KindInvestigate      TaskKind = "investigate"
)

func (k TaskKind) Valid() bool {
	switch k {
	case KindCompleteCreation, KindApproveCreation, KindInvestigate:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskAssigned   TaskStatus = "ASSIGNED"
	TaskUnassigned TaskStatus = "UNASSIGNED"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// Active reports whether the task still represents outstanding work.
// UNASSIGNED tasks sit in their candidate group's queue and count as open.
func (s TaskStatus) Active() bool {
	return s == TaskOpen || s == TaskAssigned || s == TaskUnassigned
}

type TaskResolution string

const (
	ResolutionDone      TaskResolution = "DONE"
	ResolutionCancelled TaskResolution = "CANCELLED"
)

type AuditAction string

const (
	ActionCaseCreated            AuditAction = "CASE_CREATED"
	ActionCaseUpdated            AuditAction = "CASE_UPDATED"
	ActionCaseCompleted          AuditAction = "CASE_COMPLETED"
	ActionStatusChange           AuditAction = "STATUS_CHANGE"
	ActionCaseApproved           AuditAction = "CASE_APPROVED"
	ActionCaseRejected           AuditAction = "CASE_REJECTED"
	ActionCaseAbandoned          AuditAction = "CASE_ABANDONED"
	ActionCaseDeleted            AuditAction = "CASE_DELETED"
	ActionTaskCreated            AuditAction = "TASK_CREATED"
	ActionTaskCompleted          AuditAction = "TASK_COMPLETED"
	ActionTaskCancelled          AuditAction = "TASK_CANCELLED"
	ActionTaskAssigned           AuditAction = "TASK_ASSIGNED"
	ActionTaskUnassigned         AuditAction = "TASK_UNASSIGNED"
	ActionWorkflowStarted        AuditAction = "WORKFLOW_STARTED"
	ActionInvestigationConcluded AuditAction = "INVESTIGATION_CONCLUDED"
	ActionAccessDenied           AuditAction = "ACCESS_DENIED"
)

type InvestigationOutcome string

const (
	OutcomeClosedNoAction InvestigationOutcome = "CLOSED_NO_ACTION"
	OutcomeReportFiled    InvestigationOutcome = "REPORT_FILED"
	OutcomeEscalated      InvestigationOutcome = "ESCALATED"
)

func (o InvestigationOutcome) Valid() bool {
	switch o {
	case OutcomeClosedNoAction, OutcomeReportFiled, OutcomeEscalated:
		return true
	}
	return false
}
