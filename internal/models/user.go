package models

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Role is an open, validated role name. Administrators can register custom roles at runtime.
type Role string

const (
	RoleStudent   Role = "Student"
	RoleFaculty   Role = "Faculty"
	RoleHOD       Role = "HOD"
	RoleDean      Role = "Dean"
	RoleDeptAdmin Role = "Department Administrator"
	RoleRegistrar Role = "Registrar"
	RolePrincipal Role = "Principal"
	RolePresident Role = "President"
	RoleAdmin     Role = "Admin"
)

// roleKeys maps registry keys to canonical role names.
var roleKeys = map[string]Role{
	"STUDENT":    RoleStudent,
	"FACULTY":    RoleFaculty,
	"HOD":        RoleHOD,
	"DEAN":       RoleDean,
	"DEPT_ADMIN": RoleDeptAdmin,
	"REGISTRAR":  RoleRegistrar,
	"PRINCIPAL":  RolePrincipal,
	"PRESIDENT":  RolePresident,
	"ADMIN":      RoleAdmin,
}

// RoleRegistry tracks known roles plus custom roles added at runtime.
type RoleRegistry struct {
	mu     sync.RWMutex
	custom map[Role]struct{}
}

// NewRoleRegistry returns a registry seeded with the built-in roles.
func NewRoleRegistry() *RoleRegistry {
	return &RoleRegistry{custom: make(map[Role]struct{})}
}

// Register adds a custom role. Empty names are ignored.
func (r *RoleRegistry) Register(name string) Role {
	role := NormalizeRole(name)
	if role == "" {
		return ""
	}
	if role.IsBuiltin() {
		return role
	}
	r.mu.Lock()
	r.custom[role] = struct{}{}
	r.mu.Unlock()
	return role
}

// Known reports whether the role is built in or was registered.
func (r *RoleRegistry) Known(role Role) bool {
	if role.IsBuiltin() {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.custom[role]
	return ok
}

// Roles returns built-in roles followed by custom ones in alphabetical order.
func (r *RoleRegistry) Roles() []Role {
	out := []Role{RoleStudent, RoleFaculty, RoleHOD, RoleDean, RoleDeptAdmin, RoleRegistrar, RolePrincipal, RolePresident, RoleAdmin}
	builtin := len(out)
	r.mu.RLock()
	for role := range r.custom {
		out = append(out, role)
	}
	r.mu.RUnlock()
	custom := out[builtin:]
	sort.Slice(custom, func(i, j int) bool { return custom[i] < custom[j] })
	return out
}

// NormalizeRole trims the input and resolves registry keys such as DEPT_ADMIN to canonical names.
func NormalizeRole(raw string) Role {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if role, ok := roleKeys[strings.ToUpper(trimmed)]; ok {
		return role
	}
	return Role(trimmed)
}

// IsBuiltin reports whether the role ships with the system.
func (r Role) IsBuiltin() bool {
	for _, role := range roleKeys {
		if role == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may handle grievances.
func (r Role) IsStaff() bool {
	return r != "" && r != RoleStudent
}

// User is a directory entry for students and staff.
type User struct {
	ID               string             `db:"id" json:"id"`
	Name             string             `db:"name" json:"name"`
	Email            string             `db:"email" json:"email"`
	Role             Role               `db:"role" json:"role"`
	Department       string             `db:"department" json:"department"`
	AssignedCategory *GrievanceCategory `db:"assigned_category" json:"assignedCategory,omitempty"`
	StudentClass     *string            `db:"student_class" json:"studentClass,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updatedAt"`
}

// Assignee returns the denormalised reference stored on grievances.
func (u User) Assignee() *Assignee {
	return &Assignee{ID: u.ID, Name: u.Name, Email: u.Email}
}

// OwnsCategory reports whether the user leads the given cell.
func (u User) OwnsCategory(category GrievanceCategory) bool {
	return u.AssignedCategory != nil && *u.AssignedCategory == category
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       *Role
	Department string
	Category   *GrievanceCategory
	Search     string
	Page       int
	PageSize   int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Principal is the caller identity asserted by the upstream gateway.
type Principal struct {
	UserID string
	Role   Role
}
