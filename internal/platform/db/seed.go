package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"workforce/internal/domain/auth"
	"workforce/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return err
	}

	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool, tenantID)
	if err != nil {
		return err
	}

	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, tenantID, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	if err := ensureLeaveTypes(ctx, pool, tenantID); err != nil {
		return err
	}

	if cfg.Environment != "production" {
		if err := ensureSampleDirectory(ctx, pool, tenantID); err != nil {
			return err
		}
	}

	return nil
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		_, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool, tenantID string) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName).Scan(&id)
		if err == nil {
			roleIDs[roleName] = id
			continue
		}

		err = pool.QueryRow(ctx, "INSERT INTO roles (tenant_id, name) VALUES ($1, $2) RETURNING id", tenantID, roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	permMap := map[string]string{}
	rows, err := pool.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return err
		}
		permMap[key] = id
	}

	for roleName, perms := range auth.RolePermissions {
		roleID := roleIDs[roleName]
		for _, permKey := range perms {
			permID, ok := permMap[permKey]
			if !ok {
				return errors.New("permission not found: " + permKey)
			}
			_, err := pool.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, tenantID, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return pool.QueryRow(ctx, "INSERT INTO users (tenant_id, email, password_hash, role_id) VALUES ($1, $2, $3, $4) RETURNING id", tenantID, email, hash, roleID).Scan(&id)
}

func ensureLeaveTypes(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	types := []struct {
		name    string
		code    string
		maxDays *float64
	}{
		{"Annual Leave", "ANNUAL", float64Ptr(25)},
		{"Sick Leave", "SICK", float64Ptr(10)},
		{"Unpaid Leave", "UNPAID", nil},
	}
	for _, t := range types {
		_, err := pool.Exec(ctx, `
      INSERT INTO leave_types (tenant_id, name, code, max_days)
      VALUES ($1, $2, $3, $4)
      ON CONFLICT (tenant_id, code) DO NOTHING
    `, tenantID, t.name, t.code, t.maxDays)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureSampleDirectory(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	var deptID string
	err := pool.QueryRow(ctx, "SELECT id FROM departments WHERE tenant_id = $1 AND name = $2", tenantID, "Sales").Scan(&deptID)
	if err != nil {
		err = pool.QueryRow(ctx, "INSERT INTO departments (tenant_id, name) VALUES ($1, 'Sales') RETURNING id", tenantID).Scan(&deptID)
		if err != nil {
			return err
		}
	}

	employees := []struct {
		number, first, last, email string
	}{
		{"E001", "Ama", "Mensah", "ama.mensah@example.com"},
		{"E002", "Lukas", "Becker", "lukas.becker@example.com"},
		{"E003", "Priya", "Raman", "priya.raman@example.com"},
	}
	for _, e := range employees {
		_, err := pool.Exec(ctx, `
      INSERT INTO employees (tenant_id, employee_number, first_name, last_name, email, department_id, status)
      VALUES ($1, $2, $3, $4, $5, $6, 'active')
      ON CONFLICT (tenant_id, email) DO NOTHING
    `, tenantID, e.number, e.first, e.last, e.email, deptID)
		if err != nil {
			return err
		}
	}
	return nil
}

func float64Ptr(v float64) *float64 {
	return &v
}
