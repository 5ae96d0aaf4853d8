package dto

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required"`
}
