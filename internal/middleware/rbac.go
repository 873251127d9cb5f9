package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

// SelfAccess lets a caller through RBAC when the :id route param is their own id.
const SelfAccess = "SELF"

// RBAC is a coarse route guard. Record-level decisions stay with the services.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == SelfAccess {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			response.Abort(c, errNotAuthenticated)
			return
		}

		if _, ok := allowedRoles[actor.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == actor.ID {
				c.Next()
				return
			}
		}

		err := appErrors.WithReason(appErrors.ErrForbidden, string(policy.ReasonWrongRole))
		err.Message = "role is not permitted to perform this action"
		response.Abort(c, err)
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
