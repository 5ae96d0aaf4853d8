// Package rbac holds the two role lattices: the global administrative role
// carried on every user, and the per-snapshot role derived from ownership and
// shares. They are separate types and do not convert into each other.
package rbac

import (
	"errors"
	"strings"
)

var (
	ErrInsufficientRole = errors.New("insufficient permissions")
	ErrInvalidRole      = errors.New("invalid role")
)

// GlobalRole is a user's system-wide privilege level.
type GlobalRole string

const (
	RoleView       GlobalRole = "view"
	RoleEdit       GlobalRole = "edit"
	RoleAdmin      GlobalRole = "admin"
	RoleSuperAdmin GlobalRole = "super_admin"
)

var globalRank = map[GlobalRole]int{
	RoleView:       0,
	RoleEdit:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

var globalAliases = map[string]GlobalRole{
	"viewer": RoleView,
	"editor": RoleEdit,
}

// NormalizeGlobalRole maps legacy aliases onto the canonical names. Empty input
// is view. The boolean is false for anything outside the lattice.
func NormalizeGlobalRole(raw string) (GlobalRole, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return RoleView, true
	}
	if alias, ok := globalAliases[s]; ok {
		return alias, true
	}
	role := GlobalRole(s)
	if _, ok := globalRank[role]; !ok {
		return "", false
	}
	return role, true
}

// ParseGlobalRole is NormalizeGlobalRole with an error for unknown roles.
func ParseGlobalRole(raw string) (GlobalRole, error) {
	role, ok := NormalizeGlobalRole(raw)
	if !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

func (r GlobalRole) String() string { return string(r) }

func (r GlobalRole) AtLeast(minimum GlobalRole) bool {
	rank, ok := globalRank[r]
	if !ok {
		return false
	}
	return rank >= globalRank[minimum]
}

func (r GlobalRole) IsSuperAdmin() bool { return r == RoleSuperAdmin }

// IsAdmin is true for admin and super_admin.
func (r GlobalRole) IsAdmin() bool { return r.AtLeast(RoleAdmin) }

// CanAssign reports whether an actor holding r may grant target to another user.
// Admins may hand out view and edit; only super admins may create admins.
// super_admin is never assignable: only the first registration holds it.
func (r GlobalRole) CanAssign(target GlobalRole) bool {
	if !r.IsAdmin() || target.IsSuperAdmin() {
		return false
	}
	if target.IsAdmin() {
		return r.IsSuperAdmin()
	}
	return true
}

// SnapshotRole is a user's effective privilege on one snapshot.
type SnapshotRole string

const (
	// NoAccess is the absence of any role, not the lowest one.
	NoAccess SnapshotRole = ""

	SnapshotViewer SnapshotRole = "viewer"
	SnapshotEditor SnapshotRole = "editor"
	SnapshotAdmin  SnapshotRole = "admin"
	SnapshotOwner  SnapshotRole = "owner"
)

var snapshotRank = map[SnapshotRole]int{
	SnapshotViewer: 0,
	SnapshotEditor: 1,
	SnapshotAdmin:  2,
	SnapshotOwner:  3,
}

func (r SnapshotRole) String() string { return string(r) }

func (r SnapshotRole) Valid() bool {
	_, ok := snapshotRank[r]
	return ok
}

// Rank returns -1 for NoAccess and unknown values.
func (r SnapshotRole) Rank() int {
	rank, ok := snapshotRank[r]
	if !ok {
		return -1
	}
	return rank
}

// ParseShareRole accepts the roles that may be stored on a share row. Owner is
// never grantable.
func ParseShareRole(raw string) (SnapshotRole, error) {
	role := SnapshotRole(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case SnapshotViewer, SnapshotEditor, SnapshotAdmin:
		return role, nil
	}
	return NoAccess, ErrInvalidRole
}

// Require fails unless role is present and ranks at or above minimum.
func Require(role, minimum SnapshotRole) error {
	if role == NoAccess || !role.Valid() || role.Rank() < minimum.Rank() {
		return ErrInsufficientRole
	}
	return nil
}
