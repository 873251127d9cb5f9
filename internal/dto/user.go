package dto

// CreateUserRequest is the admin payload for provisioning an account with any role.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN TRAINER STUDENT admin trainer student"`
}

// UpdateUserRequest changes profile fields. Roles change through ChangeRoleRequest.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// ChangeRoleRequest elevates or demotes a user.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}
