package modal

import "time"

// WorkflowHandle identifies the investigation process started for a case.
type WorkflowHandle struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

type Case struct {
	ID          string     `json:"id"`
	CaseNumber  string     `json:"caseNumber"`
	CaseType    *string    `json:"caseType,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Entity      *string    `json:"entity,omitempty"`
	AlertID     *string    `json:"alertId,omitempty"`
	Description *string    `json:"description,omitempty"`
	RiskScore   *float64   `json:"riskScore,omitempty"`
	Typology    *string    `json:"typology,omitempty"`
	Assignee    *string    `json:"assignee,omitempty"`
	Status      CaseStatus `json:"status"`
	CreatedBy   string     `json:"createdBy"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Workflow *WorkflowHandle `json:"workflow,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	out.CaseType = cloneString(c.CaseType)
	out.Priority = cloneString(c.Priority)
	out.Entity = cloneString(c.Entity)
	out.AlertID = cloneString(c.AlertID)
	out.Description = cloneString(c.Description)
	out.Typology = cloneString(c.Typology)
	out.Assignee = cloneString(c.Assignee)
	if c.RiskScore != nil {
		v := *c.RiskScore
		out.RiskScore = &v
	}
	if c.Workflow != nil {
		h := *c.Workflow
		out.Workflow = &h
	}
	return &out
}

// CaseFields is a partial update of the mutable case fields. Nil means "leave as is".
type CaseFields struct {
	CaseType    *string  `json:"caseType,omitempty" validate:"omitnil,casetype"`
	Priority    *string  `json:"priority,omitempty" validate:"omitnil,priority"`
	Entity      *string  `json:"entity,omitempty" validate:"omitnil,max=512"`
	AlertID     *string  `json:"alertId,omitempty" validate:"omitnil,max=128"`
	Description *string  `json:"description,omitempty" validate:"omitnil,max=8192"`
	RiskScore   *float64 `json:"riskScore,omitempty" validate:"omitnil,gte=0,lte=100"`
	Typology    *string  `json:"typology,omitempty" validate:"omitnil,typology"`
	Assignee    *string  `json:"assignee,omitempty" validate:"omitnil,max=256"`
}

// ApplyTo overwrites the fields of c that are set in f.
func (f CaseFields) ApplyTo(c *Case) {
	if f.CaseType != nil {
		c.CaseType = cloneString(f.CaseType)
	}
	if f.Priority != nil {
		c.Priority = cloneString(f.Priority)
	}
	if f.Entity != nil {
		c.Entity = cloneString(f.Entity)
	}
	if f.AlertID != nil {
		c.AlertID = cloneString(f.AlertID)
	}
	if f.Description != nil {
		c.Description = cloneString(f.Description)
	}
	if f.RiskScore != nil {
		v := *f.RiskScore
		c.RiskScore = &v
	}
	if f.Typology != nil {
		c.Typology = cloneString(f.Typology)
	}
	if f.Assignee != nil {
		c.Assignee = cloneString(f.Assignee)
	}
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
