package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

// Roles JWTAuth puts on the context under "role".
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// supabaseServiceRole is the top-level role claim of service keys.
const supabaseServiceRole = "service_role"

// roleFromClaims maps Supabase claims onto service roles. app_metadata.role
// wins; service keys act as admin; everyone else is a user.
func roleFromClaims(claims *supabaseClaims) string {
	if claims.AppMetadata != nil {
		if v, ok := claims.AppMetadata["role"].(string); ok {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				return v
			}
		}
	}
	if claims.Role == supabaseServiceRole {
		return RoleAdmin
	}
	return RoleUser
}

// RequireRole admits requests whose role is one of allowed. It must run
// after JWTAuth.
func RequireRole(allowed ...string) gin.HandlerFunc {
	const op = "middleware.RequireRole"

	allow := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			allow[a] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		role := c.GetString("role")
		if _, ok := allow[role]; !ok || role == "" {
			abortWithError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
			return
		}
		c.Next()
	}
}

// RequireAdmin guards the operator routes (live sessions, AI logs).
func RequireAdmin() gin.HandlerFunc { return RequireRole(RoleAdmin) }

// abortWithError writes err the way handlers do and stops the chain.
func abortWithError(c *gin.Context, err error) {
	var ae *utils.AppError
	if !errors.As(err, &ae) {
		ae = &utils.AppError{Code: utils.CodeInternal, Message: "internal error"}
	}
	c.AbortWithStatusJSON(utils.HTTPStatus(err), apiError{Code: ae.Code, Message: ae.Message})
}
