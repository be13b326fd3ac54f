// internal/pkg/redact/redact.go
package redact

import (
	"verdant-service/internal/pkg/rbac"
)

// Scrub walks a decoded JSON value and removes cost and margin fields the
// role is not cleared to see. The input is never mutated; callers get a
// filtered copy. Values the walker does not recognize (strings, numbers,
// bools, nil) pass through unchanged.
func Scrub(role rbac.Role, value any) any {
	if rbac.CanSeeRestrictedFields(role) {
		return value
	}
	return scrubValue(value)
}

func scrubValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if rbac.RestrictedField(key) {
				continue
			}
			out[key] = scrubValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = scrubValue(inner)
		}
		return out
	default:
		return v
	}
}
