package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type testAPI struct {
	engine        *gin.Engine
	grievances    *fakeGrievanceSrv
	workflow      *fakeWorkflowSrv
	analytics     *fakeAnalyticsSrv
	users         *fakeUserSrv
	notifications *fakeNotificationSrv
}

func newTestAPI() *testAPI {
	api := &testAPI{
		grievances:    &fakeGrievanceSrv{},
		workflow:      &fakeWorkflowSrv{},
		analytics:     &fakeAnalyticsSrv{},
		users:         &fakeUserSrv{},
		notifications: &fakeNotificationSrv{},
	}
	r := gin.New()
	r.Use(middleware.Identity(), middleware.WithResponseMeta())
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Grievances:    NewGrievanceHandler(api.grievances),
		Workflow:      NewWorkflowHandler(api.workflow),
		Analytics:     NewAnalyticsHandler(api.analytics),
		Users:         NewUserHandler(api.users),
		Notifications: NewNotificationHandler(api.notifications),
	})
	api.engine = r
	return api
}

type caller struct {
	id   string
	role string
}

var (
	asStudent = caller{id: "s1", role: "STUDENT"}
	asFaculty = caller{id: "f1", role: "FACULTY"}
	asAdmin   = caller{id: "a1", role: "ADMIN"}
	anonymous = caller{}
)

func (a *testAPI) do(t *testing.T, who caller, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if who.id != "" {
		req.Header.Set(middleware.HeaderUserID, who.id)
		req.Header.Set(middleware.HeaderUserRole, who.role)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRoutesRequireIdentity(t *testing.T) {
	api := newTestAPI()
	rec := api.do(t, anonymous, http.MethodGet, "/grievances", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutesRoleGates(t *testing.T) {
	cases := []struct {
		name   string
		who    caller
		method string
		path   string
		want   int
	}{
		{"student cannot read analytics", asStudent, http.MethodGet, "/analytics/snapshot", http.StatusForbidden},
		{"faculty reads analytics", asFaculty, http.MethodGet, "/analytics/snapshot", http.StatusOK},
		{"faculty cannot manage rules", asFaculty, http.MethodGet, "/workflow/rules", http.StatusForbidden},
		{"admin lists rules", asAdmin, http.MethodGet, "/workflow/rules", http.StatusOK},
		{"student cannot change status", asStudent, http.MethodPatch, "/grievances/g1/status", http.StatusForbidden},
		{"student reads own profile", asStudent, http.MethodGet, "/users/s1", http.StatusOK},
		{"student cannot read others", asStudent, http.MethodGet, "/users/f1", http.StatusForbidden},
		{"faculty cannot delete users", asFaculty, http.MethodDelete, "/users/s1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI()
			rec := api.do(t, tc.who, tc.method, tc.path, "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRoutesUnknownPath(t *testing.T) {
	api := newTestAPI()
	rec := api.do(t, asAdmin, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
