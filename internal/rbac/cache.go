package rbac

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/state"
)

// Directory resolves roles and permissions for a user.
type Directory interface {
	UserRoles(ctx context.Context, userID int64) ([]string, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// RoleInfoStore keeps RoleInfo snapshots in client state.
type RoleInfoStore = state.Store[RoleInfo]

// NewRoleInfoStore builds the typed state store for role snapshots.
func NewRoleInfoStore(manager *state.Manager) *RoleInfoStore {
	return state.NewStore[RoleInfo](manager, "roleinfo", nil)
}

// CachedPermissions serves RoleInfo from the state store and falls back to the directory.
type CachedPermissions struct {
	directory Directory
	store     *RoleInfoStore
	maxAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewCachedPermissions wires a directory with a role-info store. maxAge <= 0 disables expiry.
func NewCachedPermissions(directory Directory, store *RoleInfoStore, maxAge time.Duration, logger *slog.Logger) *CachedPermissions {
	return &CachedPermissions{directory: directory, store: store, maxAge: maxAge, logger: logger, now: time.Now}
}

// RoleInfo returns the snapshot for userID, reloading it when missing or stale.
func (c *CachedPermissions) RoleInfo(ctx context.Context, userID int64) (RoleInfo, error) {
	scope := strconv.FormatInt(userID, 10)
	if c.store != nil {
		info, ok, err := c.store.Lookup(ctx, scope)
		if err != nil && c.logger != nil {
			c.logger.Warn("rbac role info lookup", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		if ok && !c.stale(info) {
			return info, nil
		}
	}

	roles, err := c.directory.UserRoles(ctx, userID)
	if err != nil {
		return RoleInfo{}, err
	}
	perms, err := c.directory.EffectivePermissions(ctx, userID)
	if err != nil {
		return RoleInfo{}, err
	}
	info := RoleInfo{UserID: userID, Roles: roles, Permissions: perms, LoadedAt: c.now().UTC()}
	if c.store != nil {
		if err := c.store.Put(ctx, scope, info); err != nil && c.logger != nil {
			c.logger.Warn("rbac role info save", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}
	return info, nil
}

// EffectivePermissions implements PermissionSource.
func (c *CachedPermissions) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	info, err := c.RoleInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	return info.Permissions, nil
}

// Invalidate drops the cached snapshot, e.g. after a role change.
func (c *CachedPermissions) Invalidate(ctx context.Context, userID int64) error {
	if c.store == nil {
		return nil
	}
	return c.store.Reset(ctx, strconv.FormatInt(userID, 10))
}

func (c *CachedPermissions) stale(info RoleInfo) bool {
	if c.maxAge <= 0 {
		return false
	}
	return c.now().Sub(info.LoadedAt) > c.maxAge
}
