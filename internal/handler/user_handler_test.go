package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
)

func TestUserHandlerListFilters(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, asFaculty, http.MethodGet, "/users?role=dept_admin&category=Financial&search=kir&page=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	filter := api.users.filter
	require.NotNil(t, filter.Role)
	assert.Equal(t, models.RoleDeptAdmin, *filter.Role)
	require.NotNil(t, filter.Category)
	assert.Equal(t, models.GrievanceCategory("Financial"), *filter.Category)
	assert.Equal(t, "kir", filter.Search)
	assert.Equal(t, 3, filter.Page)
	assert.Equal(t, 20, filter.PageSize)
	assert.EqualValues(t, 1, decode(t, rec).Pagination["total_count"])
}

func TestUserHandlerCreate(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, asAdmin, http.MethodPost, "/users", `{"name":"Asha","email":"asha@college.edu","role":"STUDENT"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "asha@college.edu", api.users.created.Email)

	api.users.err = appErrors.Clone(appErrors.ErrConflict, "email already registered")
	rec = api.do(t, asAdmin, http.MethodPost, "/users", `{"name":"Asha","email":"asha@college.edu","role":"STUDENT"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUserHandlerUpdateAndDelete(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, asAdmin, http.MethodPut, "/users/f1", `{"name":"Ravi K","email":"ravi@college.edu","role":"FACULTY"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), "Ravi K")

	rec = api.do(t, asAdmin, http.MethodDelete, "/users/f1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "f1", api.users.deleted)
}

func TestUserHandlerRoles(t *testing.T) {
	api := newTestAPI()

	rec := api.do(t, asFaculty, http.MethodGet, "/users/roles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Student","Admin"]`, string(decode(t, rec).Data))

	rec = api.do(t, asAdmin, http.MethodPost, "/users/roles", `{"name":"Warden"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"role":"Warden"}`, string(decode(t, rec).Data))

	rec = api.do(t, asFaculty, http.MethodPost, "/users/roles", `{"name":"Warden"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
