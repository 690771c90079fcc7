package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeIssueTokens allows an internal caller to issue verification tokens.
const ScopeIssueTokens = "verification:issue"

// ServiceClaims are carried by bearer tokens of internal callers
// (e.g. the registration flow) that are allowed to issue tokens.
type ServiceClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether the space separated scope claim contains scope.
func (c *ServiceClaims) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}
