package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ShareLookup finds the role stored on the share row for (snapshot, user).
// found is false when no row exists.
type ShareLookup interface {
	ShareRole(ctx context.Context, snapshotID, userID uuid.UUID) (role SnapshotRole, found bool, err error)
}

// Subject is the caller whose access is being resolved.
type Subject struct {
	UserID uuid.UUID
	Role   GlobalRole
}

// Target is the snapshot being accessed.
type Target struct {
	SnapshotID  uuid.UUID
	OwnerUserID uuid.UUID
}

type Resolver struct {
	shares ShareLookup
}

func NewResolver(shares ShareLookup) *Resolver {
	return &Resolver{shares: shares}
}

// Resolve computes the effective snapshot role. Super admins resolve to owner
// before ownership or shares are consulted.
func (r *Resolver) Resolve(ctx context.Context, subject Subject, target Target) (SnapshotRole, error) {
	if subject.Role.IsSuperAdmin() {
		return SnapshotOwner, nil
	}
	if subject.UserID == target.OwnerUserID {
		return SnapshotOwner, nil
	}

	role, found, err := r.shares.ShareRole(ctx, target.SnapshotID, subject.UserID)
	if err != nil {
		return NoAccess, fmt.Errorf("failed to look up share: %w", err)
	}
	if !found || !role.Valid() || role == SnapshotOwner {
		return NoAccess, nil
	}
	return role, nil
}
