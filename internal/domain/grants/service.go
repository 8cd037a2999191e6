package grants

import (
	"context"
	"errors"
	"time"
)

// Service wires the wizard sessions to the catalog, the employee directory
// snapshot provider, and the persistence store.
type Service struct {
	Store         StoreAPI
	Directory     DirectoryAPI
	Sessions      *Manager
	SubmitTimeout time.Duration
}

func NewService(store StoreAPI, dir DirectoryAPI, submitTimeout time.Duration) *Service {
	if submitTimeout <= 0 {
		submitTimeout = 10 * time.Second
	}
	return &Service{
		Store:         store,
		Directory:     dir,
		Sessions:      NewManager(),
		SubmitTimeout: submitTimeout,
	}
}

func (s *Service) ListTypes(ctx context.Context, tenantID string) ([]LeaveType, error) {
	return s.Store.ListTypes(ctx, tenantID)
}

// Open starts a fresh wizard for the user, snapshotting the directory and
// leave type catalog. An existing session for the same user is replaced.
func (s *Service) Open(ctx context.Context, tenantID, userID string) (*Wizard, error) {
	employees, err := s.Directory.ListEmployees(ctx, tenantID, "")
	if err != nil {
		return nil, err
	}
	types, err := s.Store.ListTypes(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	w := NewWizard(employees, types)
	s.Sessions.Put(tenantID, userID, w)
	return w, nil
}

func (s *Service) Wizard(tenantID, userID string) (*Wizard, error) {
	w, ok := s.Sessions.Get(tenantID, userID)
	if !ok {
		return nil, ErrNoSession
	}
	return w, nil
}

// Cancel discards the user's draft and destroys the session.
func (s *Service) Cancel(tenantID, userID string) error {
	w, ok := s.Sessions.Get(tenantID, userID)
	if !ok {
		return ErrNoSession
	}
	w.Cancel()
	s.Sessions.Close(tenantID, userID)
	return nil
}

// Submit runs the wizard's submit under a bounded timeout. An unresponsive
// persistence call is a recoverable, retryable failure, never a crash; the
// draft is preserved exactly as validated.
func (s *Service) Submit(ctx context.Context, tenantID, userID string) (*LeaveGrant, error) {
	w, err := s.Wizard(tenantID, userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.SubmitTimeout)
	defer cancel()

	grant, err := w.Submit(ctx, func(ctx context.Context, g *LeaveGrant) (string, time.Time, error) {
		return s.Store.CreateGrant(ctx, tenantID, g)
	}, userID)
	if err != nil {
		var submitErr *SubmitError
		if errors.As(err, &submitErr) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &SubmitError{Code: SubmitUnavailable, Message: "persistence did not respond in time", Retryable: true}
		}
		return nil, err
	}
	return grant, nil
}

func (s *Service) ListGrants(ctx context.Context, tenantID string, limit, offset int) ([]LeaveGrant, int, error) {
	total, err := s.Store.CountGrants(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	grants, err := s.Store.ListGrants(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

func (s *Service) GetGrant(ctx context.Context, tenantID, grantID string) (*LeaveGrant, error) {
	return s.Store.GetGrant(ctx, tenantID, grantID)
}

// GrantedUserIDs resolves the user accounts behind a grant's employees, for
// notification fan-out after a successful submit.
func (s *Service) GrantedUserIDs(ctx context.Context, tenantID string, employeeIDs []string) (map[string]string, error) {
	return s.Directory.UserIDsForEmployees(ctx, tenantID, employeeIDs)
}

// ExpireLines marks persisted lines whose resolved carryover expiration has
// passed.
func (s *Service) ExpireLines(ctx context.Context, asOf time.Time) (int64, error) {
	return s.Store.ExpireLines(ctx, asOf)
}
