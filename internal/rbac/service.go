package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Querier is the subset of pgx used by the service.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Service orchestrates RBAC operations.
type Service struct {
	pool *pgxpool.Pool
	db   Querier
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, db: pool}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	query, args, err := psql.Select("id", "name", "description", "created_at", "updated_at").
		From("roles").OrderBy("name").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	query, args, err := psql.Select("id", "name", "description").From("permissions").OrderBy("name").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: list permissions: %w", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// EnsurePermission upserts a permission ensuring description is stored.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}
	query, args, err := psql.Insert("permissions").Columns("name", "description").
		Values(name, strings.TrimSpace(description)).
		Suffix("ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description RETURNING id, name, description").
		ToSql()
	if err != nil {
		return Permission{}, err
	}
	var p Permission
	if err := s.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Name, &p.Description); err != nil {
		return Permission{}, fmt.Errorf("rbac: ensure permission %s: %w", name, err)
	}
	return p, nil
}

// SetRolePermissions replaces permissions for a role in one transaction.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		query, args, err := psql.Delete("role_permissions").Where(sq.Eq{"role_id": roleID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("rbac: clear role permissions: %w", err)
		}
		if len(permissionIDs) == 0 {
			return nil
		}
		insert := psql.Insert("role_permissions").Columns("role_id", "permission_id")
		for _, id := range permissionIDs {
			insert = insert.Values(roleID, id)
		}
		query, args, err = insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("rbac: attach role permissions: %w", err)
		}
		return nil
	})
}

// AssignRole assigns a role to the given user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	query, args, err := psql.Insert("user_roles").Columns("user_id", "role_id").
		Values(userID, roleID).Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("rbac: assign role: %w", err)
	}
	return nil
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	query, args, err := psql.Delete("user_roles").Where(sq.Eq{"user_id": userID, "role_id": roleID}).ToSql()
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("rbac: remove role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UserRoles returns the role names held by a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	query, args, err := userRolesQuery(userID).ToSql()
	if err != nil {
		return nil, err
	}
	return s.names(ctx, query, args)
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	query, args, err := effectivePermissionsQuery(userID).ToSql()
	if err != nil {
		return nil, err
	}
	return s.names(ctx, query, args)
}

func (s *Service) names(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: query: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("rbac: scan: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func userRolesQuery(userID int64) sq.SelectBuilder {
	return psql.Select("r.name").
		From("user_roles ur").
		Join("roles r ON r.id = ur.role_id").
		Where(sq.Eq{"ur.user_id": userID})
}

func effectivePermissionsQuery(userID int64) sq.SelectBuilder {
	return psql.Select("p.name").Distinct().
		From("user_roles ur").
		Join("role_permissions rp ON rp.role_id = ur.role_id").
		Join("permissions p ON p.id = rp.permission_id").
		Where(sq.Eq{"ur.user_id": userID})
}
