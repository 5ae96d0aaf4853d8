package services

import "errors"

var (
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidInviteCode   = errors.New("invalid invite code")
	ErrUserNotFound        = errors.New("user not found")
	ErrCannotDemoteSelf    = errors.New("cannot remove your own super admin role")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrRoleNotAssignable   = errors.New("insufficient privileges to assign role")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrShareNotFound       = errors.New("share not found")
	ErrOwnerHasAccess      = errors.New("owner already has access")
	ErrNotSnapshotOwner    = errors.New("only owner can delete")
	ErrXeroNotConfigured   = errors.New("xero oauth is not configured")
	ErrXeroNotConnected    = errors.New("xero connection not found")
	ErrXeroTenantNotSet    = errors.New("xero tenant is not selected")
	ErrInvalidOAuthState   = errors.New("invalid xero oauth state")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
