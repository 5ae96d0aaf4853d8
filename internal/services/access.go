package services

import (
	"context"

	"github.com/dimitrije/atlas-api/internal/models"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/google/uuid"
)

// AccessGate loads a snapshot and checks the caller's role against the
// minimum an operation needs. Roles are resolved on every call.
//
// A caller with no role at all gets ErrSnapshotNotFound so the snapshot's
// existence is not confirmed; a caller with a role below the minimum gets
// rbac.ErrInsufficientRole.
type AccessGate struct {
	snapshots *SnapshotService
	resolver  *rbac.Resolver
}

func NewAccessGate(snapshots *SnapshotService, resolver *rbac.Resolver) *AccessGate {
	return &AccessGate{snapshots: snapshots, resolver: resolver}
}

func (g *AccessGate) Authorize(ctx context.Context, user *models.User, snapshotID uuid.UUID, minimum rbac.SnapshotRole) (*models.Snapshot, rbac.SnapshotRole, error) {
	snap, role, err := g.resolve(ctx, user, snapshotID)
	if err != nil {
		return nil, rbac.NoAccess, err
	}
	if err := rbac.Require(role, minimum); err != nil {
		return nil, role, err
	}
	return snap, role, nil
}

// AuthorizeDelete admits only the literal owner. Super admins resolve to
// owner on every other operation but cannot delete someone else's snapshot.
func (g *AccessGate) AuthorizeDelete(ctx context.Context, user *models.User, snapshotID uuid.UUID) (*models.Snapshot, error) {
	snap, _, err := g.resolve(ctx, user, snapshotID)
	if err != nil {
		return nil, err
	}
	if snap.OwnerUserID != user.ID {
		return nil, ErrNotSnapshotOwner
	}
	return snap, nil
}

func (g *AccessGate) resolve(ctx context.Context, user *models.User, snapshotID uuid.UUID) (*models.Snapshot, rbac.SnapshotRole, error) {
	snap, err := g.snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, rbac.NoAccess, err
	}

	role, err := g.resolver.Resolve(ctx,
		rbac.Subject{UserID: user.ID, Role: user.Role},
		rbac.Target{SnapshotID: snap.ID, OwnerUserID: snap.OwnerUserID},
	)
	if err != nil {
		return nil, rbac.NoAccess, err
	}
	if role == rbac.NoAccess {
		return nil, rbac.NoAccess, ErrSnapshotNotFound
	}
	return snap, role, nil
}
