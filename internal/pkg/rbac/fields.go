// internal/pkg/rbac/fields.go
package rbac

// restrictedFields is the denylist of response field names that only roles
// holding finance:read may see. Cost and margin figures live on estimates,
// invoices and price items at arbitrary nesting depth, so the list is
// matched by key name wherever it appears.
var restrictedFields = map[string]struct{}{
	"purchase_price":    {},
	"gross_profit":      {},
	"markup_rate":       {},
	"adjustment_amount": {},
	"unit_cost":         {},
	"margin_rate":       {},
}

// RestrictedField reports whether the named response field is limited to
// roles with finance visibility.
func RestrictedField(name string) bool {
	_, ok := restrictedFields[name]
	return ok
}

// CanSeeRestrictedFields reports whether the role may see cost/margin fields.
func CanSeeRestrictedFields(role Role) bool {
	return Has(role, PermFinanceRead)
}
