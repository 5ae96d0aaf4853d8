package middleware

import (
	"context"
	"errors"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey = "user_id"
	UserKey   = "user"
)

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// FailureObserver counts rejected requests by reason.
type FailureObserver interface {
	ObserveAuthFailure(reason string)
}

// Session authenticates the request from the session cookie and stores the
// caller on the context. Absent, expired and unknown tokens get the same 401;
// only the failure metric tells them apart.
func Session(resolver SessionResolver, cookieName string, observer FailureObserver) drift.HandlerFunc {
	return func(c *drift.Context) {
		cookie, err := c.Request.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			observe(observer, "missing_session")
			c.Unauthorized("Not authenticated")
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				observe(observer, "invalid_session")
				c.Unauthorized("Not authenticated")
				return
			}
			c.InternalServerError("failed to resolve session")
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)

		c.Next()
	}
}

// RequireGlobalRole must run after Session.
func RequireGlobalRole(minimum rbac.GlobalRole, message string) drift.HandlerFunc {
	return func(c *drift.Context) {
		user := GetUser(c)
		if user == nil {
			c.Unauthorized("Not authenticated")
			return
		}
		if !user.Role.AtLeast(minimum) {
			c.Forbidden(message)
			return
		}
		c.Next()
	}
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func GetUser(c *drift.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

func observe(observer FailureObserver, reason string) {
	if observer != nil {
		observer.ObserveAuthFailure(reason)
	}
}
