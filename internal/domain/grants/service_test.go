package grants

import (
	"context"
	"errors"
	"testing"
	"time"

	"workforce/internal/domain/directory"
)

type fakeStore struct {
	types      []LeaveType
	grants     []LeaveGrant
	createFunc func(ctx context.Context, tenantID string, grant *LeaveGrant) (string, time.Time, error)
	expired    int64
}

func (f *fakeStore) ListTypes(ctx context.Context, tenantID string) ([]LeaveType, error) {
	return f.types, nil
}

func (f *fakeStore) CreateGrant(ctx context.Context, tenantID string, grant *LeaveGrant) (string, time.Time, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, tenantID, grant)
	}
	return "g1", time.Now().UTC(), nil
}

func (f *fakeStore) CountGrants(ctx context.Context, tenantID string) (int, error) {
	return len(f.grants), nil
}

func (f *fakeStore) ListGrants(ctx context.Context, tenantID string, limit, offset int) ([]LeaveGrant, error) {
	return f.grants, nil
}

func (f *fakeStore) GetGrant(ctx context.Context, tenantID, grantID string) (*LeaveGrant, error) {
	for i := range f.grants {
		if f.grants[i].ID == grantID {
			return &f.grants[i], nil
		}
	}
	return nil, ErrGrantNotFound
}

func (f *fakeStore) ExpireLines(ctx context.Context, asOf time.Time) (int64, error) {
	return f.expired, nil
}

type fakeDirectory struct {
	employees []directory.Employee
}

func (f *fakeDirectory) ListEmployees(ctx context.Context, tenantID, departmentID string) ([]directory.Employee, error) {
	return f.employees, nil
}

func (f *fakeDirectory) UserIDsForEmployees(ctx context.Context, tenantID string, employeeIDs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range employeeIDs {
		out[id] = "user-" + id
	}
	return out, nil
}

func newTestService(store *fakeStore) *Service {
	if store.types == nil {
		store.types = testTypes()
	}
	return NewService(store, &fakeDirectory{employees: testEmployees()}, time.Second)
}

func openReadyWizard(t *testing.T, s *Service) *Wizard {
	t.Helper()
	w, err := s.Open(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	walkToReview(t, w)
	return w
}

func TestServiceOpenAndSessionLifecycle(t *testing.T) {
	s := newTestService(&fakeStore{})

	if _, err := s.Wizard("t1", "u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before open, got %v", err)
	}

	if _, err := s.Open(context.Background(), "t1", "u1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Wizard("t1", "u1"); err != nil {
		t.Fatalf("wizard after open: %v", err)
	}

	// Sessions are per tenant and user.
	if _, err := s.Wizard("t2", "u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for other tenant, got %v", err)
	}

	if err := s.Cancel("t1", "u1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := s.Wizard("t1", "u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after cancel, got %v", err)
	}
}

func TestServiceSubmitSuccess(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	openReadyWizard(t, s)

	grant, err := s.Submit(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if grant.ID != "g1" || len(grant.Lines) != 3 {
		t.Fatalf("unexpected grant: %+v", grant)
	}
	if grant.CreatedBy != "u1" {
		t.Fatalf("expected createdBy u1, got %q", grant.CreatedBy)
	}
}

func TestServiceSubmitConflictNotRetryable(t *testing.T) {
	store := &fakeStore{
		createFunc: func(ctx context.Context, tenantID string, grant *LeaveGrant) (string, time.Time, error) {
			return "", time.Time{}, &SubmitError{Code: SubmitConflict, Message: "a grant with this title already exists"}
		},
	}
	s := newTestService(store)
	w := openReadyWizard(t, s)

	_, err := s.Submit(context.Background(), "t1", "u1")
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if submitErr.Code != SubmitConflict || submitErr.Retryable {
		t.Fatalf("conflict must not be retryable: %+v", submitErr)
	}

	if w.State().CurrentStep != StepReview {
		t.Fatal("failed submit must preserve the draft at review")
	}
}

func TestServiceSubmitTimeoutRetryable(t *testing.T) {
	store := &fakeStore{
		createFunc: func(ctx context.Context, tenantID string, grant *LeaveGrant) (string, time.Time, error) {
			<-ctx.Done()
			return "", time.Time{}, ctx.Err()
		},
	}
	s := newTestService(store)
	s.SubmitTimeout = 20 * time.Millisecond
	w := openReadyWizard(t, s)

	_, err := s.Submit(context.Background(), "t1", "u1")
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if submitErr.Code != SubmitUnavailable || !submitErr.Retryable {
		t.Fatalf("timeout must map to retryable unavailable: %+v", submitErr)
	}

	// The draft survives and a healthy store accepts the retry.
	store.createFunc = nil
	if _, err := s.Submit(context.Background(), "t1", "u1"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if w.State().CurrentStep != StepTitle {
		t.Fatal("successful retry must reset the draft")
	}
}

func TestServiceListGrants(t *testing.T) {
	store := &fakeStore{grants: []LeaveGrant{{ID: "g1", Title: "A"}, {ID: "g2", Title: "B"}}}
	s := newTestService(store)

	list, total, err := s.ListGrants(context.Background(), "t1", 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("expected 2 grants, got total=%d len=%d", total, len(list))
	}
}

func TestServiceGrantedUserIDs(t *testing.T) {
	s := newTestService(&fakeStore{})
	ids, err := s.GrantedUserIDs(context.Background(), "t1", []string{"e1", "e2"})
	if err != nil {
		t.Fatalf("granted user ids: %v", err)
	}
	if ids["e1"] != "user-e1" || ids["e2"] != "user-e2" {
		t.Fatalf("unexpected mapping: %v", ids)
	}
}

func TestServiceExpireLines(t *testing.T) {
	store := &fakeStore{expired: 4}
	s := newTestService(store)
	n, err := s.ExpireLines(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 expired lines, got %d", n)
	}
}
