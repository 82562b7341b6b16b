package lifecycle

import (
	"context"

	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
)

// Authorizer decides whether an actor may perform a privileged action on a
// case. The engine consults it and records who acted; it never compares
// actor names itself.
type Authorizer interface {
	CanApprove(ctx context.Context, actor string, c *modal.Case) bool
	CanAbandon(ctx context.Context, actor string, c *modal.Case) bool
	CanDelete(ctx context.Context, actor string, c *modal.Case) bool
}

// RoleChecker reports role membership. config.Config satisfies it.
type RoleChecker interface {
	HasRole(user, role string) bool
}

// RoleAuthorizer grants approval to approvers and admins, and restricts
// abandon and delete to the case creator.
type RoleAuthorizer struct {
	roles RoleChecker
}

func NewRoleAuthorizer(roles RoleChecker) *RoleAuthorizer {
	return &RoleAuthorizer{roles: roles}
}

func (a *RoleAuthorizer) CanApprove(_ context.Context, actor string, _ *modal.Case) bool {
	return a.roles.HasRole(actor, config.RoleApprover) || a.roles.HasRole(actor, config.RoleAdmin)
}

func (a *RoleAuthorizer) CanAbandon(_ context.Context, actor string, c *modal.Case) bool {
	return actor != "" && actor == c.CreatedBy
}

func (a *RoleAuthorizer) CanDelete(_ context.Context, actor string, c *modal.Case) bool {
	return actor != "" && actor == c.CreatedBy
}
