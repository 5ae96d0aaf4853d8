package handlers

import (
	"errors"
	"net/http"

	"github.com/dimitrije/atlas-api/internal/logger"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and reported as a 500 with fallback as the message.
func respondError(c *drift.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.Unauthorized("Not authenticated")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid credentials")

	case errors.Is(err, services.ErrInvalidInviteCode):
		c.Forbidden("Invalid invite code")
	case errors.Is(err, services.ErrRoleNotAssignable), errors.Is(err, rbac.ErrInsufficientRole):
		c.Forbidden("Insufficient permissions")
	case errors.Is(err, services.ErrNotSnapshotOwner):
		c.Forbidden("Only owner can delete")

	case errors.Is(err, services.ErrUserNotFound):
		c.NotFound("User not found")
	case errors.Is(err, services.ErrSnapshotNotFound):
		c.NotFound("Snapshot not found")
	case errors.Is(err, services.ErrShareNotFound):
		c.NotFound("Share not found")

	case errors.Is(err, services.ErrEmailTaken):
		_ = c.JSON(http.StatusConflict, map[string]string{"error": "Email already registered"})

	case errors.Is(err, services.ErrOwnerHasAccess):
		c.BadRequest("Owner already has access")
	case errors.Is(err, rbac.ErrInvalidRole):
		c.BadRequest("Invalid role")
	case errors.Is(err, services.ErrCannotDemoteSelf):
		c.BadRequest("Cannot remove your own super admin role")
	case errors.Is(err, services.ErrCannotDeleteSelf):
		c.BadRequest("Cannot delete your own account")

	case errors.Is(err, services.ErrXeroNotConfigured):
		c.InternalServerError("Xero OAuth is not configured")
	case errors.Is(err, services.ErrXeroNotConnected):
		c.BadRequest("Xero connection not found")
	case errors.Is(err, services.ErrXeroTenantNotSet):
		c.BadRequest("Xero tenant is not selected")
	case errors.Is(err, services.ErrInvalidOAuthState):
		c.BadRequest("Invalid Xero OAuth state")
	case errors.Is(err, services.ErrUpstreamUnavailable):
		c.BadGateway("Xero request failed")

	default:
		logger.Get().Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg(fallback)
		c.InternalServerError(fallback)
	}
}
