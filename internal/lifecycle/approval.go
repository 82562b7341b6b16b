package lifecycle

import (
	"slices"

	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
)

// ApprovalGate decides whether a completed draft must be approved before it
// becomes ready for assignment.
type ApprovalGate struct {
	policy config.ApprovalPolicy
}

func NewApprovalGate(p config.ApprovalPolicy) ApprovalGate {
	return ApprovalGate{policy: p}
}

// RequiresApproval is true iff the priority is one of the gated priorities
// or the risk score is strictly above the threshold.
func (g ApprovalGate) RequiresApproval(priority *string, riskScore *float64) bool {
	if priority != nil && slices.Contains(g.policy.Priorities, *priority) {
		return true
	}
	return riskScore != nil && *riskScore > g.policy.RiskThreshold
}

func (g ApprovalGate) RequiresApprovalFor(c *modal.Case) bool {
	return g.RequiresApproval(c.Priority, c.RiskScore)
}
