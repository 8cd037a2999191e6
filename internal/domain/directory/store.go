package directory

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// ListEmployees returns active employees ordered by name, optionally
// filtered by department. Callers treat the result as a snapshot; the wizard
// never refreshes it mid-session.
func (s *Store) ListEmployees(ctx context.Context, tenantID, departmentID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id,
           COALESCE(e.user_id::text, ''),
           COALESCE(e.employee_number, ''),
           e.first_name, e.last_name, e.email,
           COALESCE(e.department_id::text, ''),
           COALESCE(d.name, ''),
           e.status, e.created_at
    FROM employees e
    LEFT JOIN departments d ON e.department_id = d.id
    WHERE e.tenant_id = $1
      AND e.status = 'active'
      AND ($2 = '' OR e.department_id::text = $2)
    ORDER BY e.last_name, e.first_name
  `, tenantID, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.UserID, &e.EmployeeNumber, &e.FirstName, &e.LastName, &e.Email,
			&e.DepartmentID, &e.DepartmentName, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, created_at
    FROM departments
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// UserIDsForEmployees maps employee ids to their linked user accounts.
// Employees without a user account are omitted.
func (s *Store) UserIDsForEmployees(ctx context.Context, tenantID string, employeeIDs []string) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id::text
    FROM employees
    WHERE tenant_id = $1 AND id = ANY($2) AND user_id IS NOT NULL
  `, tenantID, employeeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make(map[string]string)
	for rows.Next() {
		var employeeID, userID string
		if err := rows.Scan(&employeeID, &userID); err != nil {
			return nil, err
		}
		users[employeeID] = userID
	}
	return users, rows.Err()
}
