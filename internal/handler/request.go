package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/middleware"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/response"
)

func principal(c *gin.Context) models.Principal {
	return middleware.Principal(c)
}

// bindJSON decodes the body and writes the error response itself on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
