package rbac

import (
	"context"
	"time"
)

// Role names provisioned at install time.
const (
	RoleSystemManager   = "System Manager"
	RolePropertyManager = "Property Manager"
	RoleLandlordManager = "Landlord Manager"
	RoleRentalApprover  = "Rental Approver"
	RoleAccountsUser    = "Accounts User"
	RoleMediaManager    = "Media Manager"
)

// DefaultRoles lists the roles the installer creates, with descriptions.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleSystemManager, Description: "Full access to every rental endpoint"},
		{Name: RolePropertyManager, Description: "Maintain properties and risk assessments"},
		{Name: RoleLandlordManager, Description: "Maintain landlords, contracts and payment schedules"},
		{Name: RoleRentalApprover, Description: "Verify, approve and activate landlord records"},
		{Name: RoleAccountsUser, Description: "Record payments and manage customer invoicing"},
		{Name: RoleMediaManager, Description: "Maintain media installations and rental history"},
	}
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// APIKey authenticates a remote caller. Only the bcrypt hash of the secret is
// stored; Prefix is the public lookup half of the presented key.
type APIKey struct {
	ID         int64
	Name       string
	Prefix     string
	SecretHash string
	Roles      []string
	Active     bool
	CreatedAt  time.Time
}

// Principal describes the authenticated actor.
type Principal struct {
	Name  string
	Roles []string
}

// HasAny reports whether the principal holds one of roles. System Manager
// holds every role.
func (p Principal) HasAny(roles ...string) bool {
	for _, have := range p.Roles {
		if have == RoleSystemManager {
			return true
		}
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
