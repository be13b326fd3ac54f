// internal/middleware/routes.go
package middleware

import (
	"verdant-service/internal/pkg/rbac"
)

// routePermissions maps "METHOD /route/template" to the permission required.
// Templates are gin's registered patterns, matched via FullPath so no second
// pattern engine exists. An empty permission means authenticated-only. A
// route absent from this table is denied: adding an endpoint without
// deciding its permission is a bug the request path surfaces immediately.
var routePermissions = map[string]rbac.Permission{
	"POST /api/v1/auth/logout-all":                  "",
	"GET /api/v1/auth/me":                           "",
	"GET /api/v1/auth/check-permission/:permission": "",
	"GET /api/v1/auth/sessions":                     "",
	"DELETE /api/v1/auth/sessions/:token_id":        "",

	"GET /api/v1/estimates":              rbac.PermEstimateRead,
	"POST /api/v1/estimates":             rbac.PermEstimateCreate,
	"GET /api/v1/estimates/:id":          rbac.PermEstimateRead,
	"PUT /api/v1/estimates/:id":          rbac.PermEstimateUpdate,
	"DELETE /api/v1/estimates/:id":       rbac.PermEstimateDelete,
	"POST /api/v1/estimates/:id/approve": rbac.PermEstimateApprove,
	"POST /api/v1/estimates/:id/adjust":  rbac.PermEstimateAdjust,

	"GET /api/v1/invoices":            rbac.PermInvoiceRead,
	"POST /api/v1/invoices":           rbac.PermInvoiceCreate,
	"GET /api/v1/invoices/:id":        rbac.PermInvoiceRead,
	"POST /api/v1/invoices/:id/issue": rbac.PermInvoiceIssue,
	"DELETE /api/v1/invoices/:id":     rbac.PermInvoiceDelete,

	"GET /api/v1/pricing/items":      rbac.PermPricingRead,
	"PUT /api/v1/pricing/items":      rbac.PermPricingWrite,
	"GET /api/v1/pricing/items/:sku": rbac.PermPricingRead,
}

// PermissionForRoute resolves a matched route to its required permission.
// The second return reports whether the route is in the table at all.
func PermissionForRoute(method, fullPath string) (rbac.Permission, bool) {
	perm, ok := routePermissions[method+" "+fullPath]
	return perm, ok
}
