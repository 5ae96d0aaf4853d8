package handlers

import (
	"net/http"

	"github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/dimitrije/atlas-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// UserHandler serves user administration. Routes are mounted behind
// RequireGlobalRole, so handlers only re-check what the role gate cannot.
type UserHandler struct {
	userService UserServiceInterface
}

func NewUserHandler(userService UserServiceInterface) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *drift.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list users")
		return
	}

	out := make([]dto.UserOut, 0, len(users))
	for i := range users {
		out = append(out, toUserOut(&users[i]))
	}
	_ = c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Create(c *drift.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	role := rbac.RoleView
	if req.Role != "" {
		parsed, err := rbac.ParseGlobalRole(req.Role)
		if err != nil {
			c.BadRequest("Invalid role")
			return
		}
		role = parsed
	}
	if role.IsSuperAdmin() {
		respondError(c, services.ErrRoleNotAssignable, "failed to create user")
		return
	}

	user, err := h.userService.Create(c.Request.Context(), middleware.GetUser(c), req.Email, req.Password, role)
	if err != nil {
		respondError(c, err, "failed to create user")
		return
	}
	_ = c.JSON(http.StatusOK, toUserOut(user))
}

func (h *UserHandler) UpdateRole(c *drift.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.NotFound("User not found")
		return
	}

	var req dto.UpdateUserRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := rbac.ParseGlobalRole(req.Role)
	if err != nil {
		c.BadRequest("Invalid role")
		return
	}
	if role.IsSuperAdmin() {
		respondError(c, services.ErrRoleNotAssignable, "failed to update user")
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), middleware.GetUserID(c), targetID, role)
	if err != nil {
		respondError(c, err, "failed to update user")
		return
	}
	_ = c.JSON(http.StatusOK, toUserOut(user))
}

func (h *UserHandler) Delete(c *drift.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.NotFound("User not found")
		return
	}

	if err := h.userService.Delete(c.Request.Context(), middleware.GetUserID(c), targetID); err != nil {
		respondError(c, err, "failed to delete user")
		return
	}
	_ = c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}
