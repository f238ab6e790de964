package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/logger"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/response"
)

// Identity headers set by the upstream gateway after it authenticates the caller.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// ContextPrincipalKey is the gin context key storing the caller's models.Principal.
const ContextPrincipalKey = "principal"

const maxIdentityLength = 128

// Identity attaches the asserted caller to the context. Requests without an id carry an empty principal.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if len(id) > maxIdentityLength {
			id = ""
		}
		principal := models.Principal{UserID: id}
		if id != "" {
			principal.Role = models.NormalizeRole(c.GetHeader(HeaderUserRole))
			c.Set(logger.PrincipalKey, id)
		}
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// RequireIdentity rejects requests that did not assert a caller.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c).UserID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing "+HeaderUserID+" header"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Principal returns the caller stored by Identity.
func Principal(c *gin.Context) models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return models.Principal{}
	}
	principal, _ := value.(models.Principal)
	return principal
}
