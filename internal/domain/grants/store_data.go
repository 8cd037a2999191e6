package grants

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListTypes(ctx context.Context, tenantID string) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, code, max_days, created_at
    FROM leave_types
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		var t LeaveType
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.MaxDays, &t.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// CreateGrant persists the grant and all of its lines in one transaction and
// classifies failures so the wizard can tell the caller whether retrying the
// preserved draft can succeed.
func (s *Store) CreateGrant(ctx context.Context, tenantID string, grant *LeaveGrant) (string, time.Time, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", time.Time{}, classifySubmitError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
    INSERT INTO leave_grants (tenant_id, title, leave_type_id, mode, days_granted, period_start, period_end, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id, created_at
  `, tenantID, grant.Title, grant.LeaveTypeID, grant.Mode, grant.DaysGranted, grant.PeriodStart, grant.PeriodEnd, grant.CreatedBy).Scan(&id, &createdAt)
	if err != nil {
		return "", time.Time{}, classifySubmitError(err)
	}

	for _, line := range grant.Lines {
		if _, err := tx.Exec(ctx, `
      INSERT INTO leave_grant_lines (tenant_id, grant_id, employee_id, days_granted, period_start, period_end, carryover_expiration)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, tenantID, id, line.EmployeeID, line.DaysGranted, line.PeriodStart, line.PeriodEnd, line.CarryoverExpiration); err != nil {
			return "", time.Time{}, classifySubmitError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", time.Time{}, classifySubmitError(err)
	}
	return id, createdAt, nil
}

func classifySubmitError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &SubmitError{Code: SubmitConflict, Message: "a grant with this title already exists", Retryable: false}
		case "23503", "23514":
			return &SubmitError{Code: SubmitRejected, Message: "grant was rejected by persistence constraints", Retryable: false}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &SubmitError{Code: SubmitUnavailable, Message: "persistence did not respond in time", Retryable: true}
	}
	return &SubmitError{Code: SubmitUnavailable, Message: "persistence is unavailable", Retryable: true}
}

func (s *Store) CountGrants(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM leave_grants WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}

func (s *Store) ListGrants(ctx context.Context, tenantID string, limit, offset int) ([]LeaveGrant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, title, leave_type_id, mode, days_granted, period_start, period_end, created_by, created_at
    FROM leave_grants
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []LeaveGrant
	for rows.Next() {
		var g LeaveGrant
		if err := rows.Scan(&g.ID, &g.Title, &g.LeaveTypeID, &g.Mode, &g.DaysGranted, &g.PeriodStart, &g.PeriodEnd, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *Store) GetGrant(ctx context.Context, tenantID, grantID string) (*LeaveGrant, error) {
	var g LeaveGrant
	err := s.DB.QueryRow(ctx, `
    SELECT id, title, leave_type_id, mode, days_granted, period_start, period_end, created_by, created_at
    FROM leave_grants
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, grantID).Scan(&g.ID, &g.Title, &g.LeaveTypeID, &g.Mode, &g.DaysGranted, &g.PeriodStart, &g.PeriodEnd, &g.CreatedBy, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, days_granted, period_start, period_end, carryover_expiration, expired
    FROM leave_grant_lines
    WHERE grant_id = $1
    ORDER BY employee_id
  `, grantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line GrantLine
		if err := rows.Scan(&line.EmployeeID, &line.DaysGranted, &line.PeriodStart, &line.PeriodEnd, &line.CarryoverExpiration, &line.Expired); err != nil {
			return nil, err
		}
		g.Lines = append(g.Lines, line)
		g.EmployeeIDs = append(g.EmployeeIDs, line.EmployeeID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &g, nil
}

// ExpireLines marks lines whose carryover expiration has passed. Run by the
// scheduled sweep job.
func (s *Store) ExpireLines(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_grant_lines
    SET expired = TRUE
    WHERE expired = FALSE AND carryover_expiration < $1
  `, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
