// internal/pkg/rbac/registry.go
package rbac

// Role is a closed enumeration. Roles are never inherited or extended at
// runtime; the permission table below is the single place that encodes
// business rules such as "only the owner may issue invoices".
type Role string

const (
	RoleOwner    Role = "owner"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleEmployee
}

// Permission is an opaque string token namespaced resource:action.
// Permissions are data, not code: adding one is a table change.
type Permission = string

const (
	PermEstimateRead    Permission = "estimate:read"
	PermEstimateCreate  Permission = "estimate:create"
	PermEstimateUpdate  Permission = "estimate:update"
	PermEstimateDelete  Permission = "estimate:delete"
	PermEstimateApprove Permission = "estimate:approve"
	PermEstimateAdjust  Permission = "estimate:adjust"

	PermInvoiceRead   Permission = "invoice:read"
	PermInvoiceCreate Permission = "invoice:create"
	PermInvoiceIssue  Permission = "invoice:issue"
	PermInvoiceDelete Permission = "invoice:delete"

	PermProjectRead  Permission = "project:read"
	PermProjectWrite Permission = "project:write"

	PermPricingRead  Permission = "pricing:read"
	PermPricingWrite Permission = "pricing:write"

	PermCustomerRead  Permission = "customer:read"
	PermCustomerWrite Permission = "customer:write"

	PermFinanceRead   Permission = "finance:read"
	PermSessionManage Permission = "session:manage"
	PermUserManage    Permission = "user:manage"
)

// employeePermissions is the day-to-day field crew set: working with
// estimates and customers, reading everything needed to do the job, but no
// approvals, no invoicing, no cost/margin visibility.
var employeePermissions = []Permission{
	PermEstimateRead,
	PermEstimateCreate,
	PermEstimateUpdate,
	PermInvoiceRead,
	PermProjectRead,
	PermPricingRead,
	PermCustomerRead,
	PermCustomerWrite,
}

// ownerPermissions happens to be a strict superset of the employee set in
// this domain. Nothing in this package relies on that; the superset property
// is asserted by tests, not assumed by code.
var ownerPermissions = append([]Permission{
	PermEstimateDelete,
	PermEstimateApprove,
	PermEstimateAdjust,
	PermInvoiceCreate,
	PermInvoiceIssue,
	PermInvoiceDelete,
	PermProjectWrite,
	PermPricingWrite,
	PermFinanceRead,
	PermSessionManage,
	PermUserManage,
}, employeePermissions...)

// rolePermissions is immutable after package init; reads need no locking.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner:    permSet(ownerPermissions),
	RoleEmployee: permSet(employeePermissions),
}

func permSet(perms []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// PermissionsFor returns the permission set for a role as a sorted-input
// slice copy. Unknown roles get an empty set.
func PermissionsFor(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, 0, len(set))
	// Preserve the declaration order from the source tables so the API
	// output is stable.
	for _, p := range ownerPermissions {
		if _, has := set[p]; has {
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether the role's set contains the permission.
func Has(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, has := set[perm]
	return has
}
