package dto

// UserRequest creates or replaces a directory entry. Role accepts canonical names
// ("Department Administrator") and registry keys ("DEPT_ADMIN").
type UserRequest struct {
	Name             string  `json:"name" validate:"required,max=120"`
	Email            string  `json:"email" validate:"required,email"`
	Role             string  `json:"role" validate:"required"`
	Department       string  `json:"department" validate:"max=120"`
	AssignedCategory *string `json:"assignedCategory" validate:"omitempty,oneof=Academic Infrastructure Financial Administrative Hostel General"`
	StudentClass     *string `json:"studentClass" validate:"omitempty,max=60"`
}

// RoleRequest registers a custom role.
type RoleRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}
