package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/middleware/requestid"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", h)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPage(t *testing.T) {
	rec := serve(t, func(c *gin.Context) {
		Page(c, []string{"g1"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `["g1"]`, string(body["data"]))
	assert.Contains(t, body, "pagination")
	assert.NotContains(t, body, "meta")
}

func TestErrorEnvelope(t *testing.T) {
	rec := serve(t, func(c *gin.Context) {
		Error(c, appErrors.Invalid("condition %d: %s", 0, "value is required").WithDetail("condition", 0))
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"error": {"code": "VALIDATION_ERROR", "message": "condition 0: value is required", "status": 400, "details": {"condition": 0}},
		"meta": {"request_id": "req-1"}
	}`, rec.Body.String())
}

func TestErrorHidesUntypedCause(t *testing.T) {
	rec := serve(t, func(c *gin.Context) {
		Error(c, errors.New("pq: relation grievances does not exist"))
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Contains(t, rec.Body.String(), appErrors.ErrInternal.Code)
}

func TestAttachment(t *testing.T) {
	rec := serve(t, func(c *gin.Context) {
		Attachment(c, "report.csv", "text/csv; charset=utf-8", []byte("Section,Metric,Value\n"))
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="report.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Section,Metric,Value\n", rec.Body.String())
}
