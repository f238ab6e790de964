package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/response"
)

// Self lets a caller through when the :id route parameter is their own user id.
const Self = "SELF"

// Staff admits any non-student role, including custom ones.
const Staff = "STAFF"

// RBAC enforces role-based access control for routes. Entries are role names or
// registry keys plus the Self and Staff markers.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf, allowStaff := false, false
	allowedRoles := make(map[models.Role]struct{}, len(allowed))
	for _, a := range allowed {
		switch a {
		case Self:
			allowSelf = true
		case Staff:
			allowStaff = true
		default:
			allowedRoles[models.NormalizeRole(a)] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		principal := Principal(c)
		if principal.UserID == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[principal.Role]; ok {
			c.Next()
			return
		}
		if allowStaff && principal.Role.IsStaff() {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == principal.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// RequireStaff admits every staff role.
func RequireStaff() gin.HandlerFunc {
	return RBAC(Staff)
}
