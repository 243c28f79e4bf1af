package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleInfo is the per-user snapshot of roles and effective permissions kept in client state.
type RoleInfo struct {
	UserID      int64     `json:"userId"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	LoadedAt    time.Time `json:"loadedAt"`
}

// Has reports whether the snapshot grants perm.
func (i RoleInfo) Has(perm string) bool {
	return hasAnyPermission(i.Permissions, normalizePermissions([]string{perm}))
}
