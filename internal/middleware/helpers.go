// internal/middleware/helpers.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"verdant-service/internal/domain/auth"
	"verdant-service/internal/pkg/rbac"
)

// GetPrincipal gets the authenticated principal from context
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// MustGetPrincipal gets the principal from context or panics
func MustGetPrincipal(c *gin.Context) auth.Principal {
	p, ok := GetPrincipal(c)
	if !ok {
		panic("principal not found in context")
	}
	return p
}

// GetJTI gets the token id from context
func GetJTI(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextJTI)
	if !exists {
		return "", false
	}
	jti, ok := v.(string)
	return jti, ok
}

// MustGetJTI gets the token id from context or panics
func MustGetJTI(c *gin.Context) string {
	jti, ok := GetJTI(c)
	if !ok {
		panic("jti not found in context")
	}
	return jti
}

// GetRole gets the caller's role from context
func GetRole(c *gin.Context) (rbac.Role, bool) {
	v, exists := c.Get(ContextRole)
	if !exists {
		return "", false
	}
	role, ok := v.(rbac.Role)
	return role, ok
}

// IsAuthenticated checks if the request carries a validated principal
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ContextPrincipal)
	return exists
}
