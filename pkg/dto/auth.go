package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,max=72"`
	Remember   bool   `json:"remember"`
	InviteCode string `json:"invite_code"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	Remember bool   `json:"remember"`
}

type UserOut struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type AuthResponse struct {
	User UserOut `json:"user"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
