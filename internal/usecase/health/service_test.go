package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err   error
	calls int
}

func (m *mockChecker) HealthCheck(_ context.Context) error {
	m.calls++
	return m.err
}

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name       string
		dbErr      error
		mlsErr     error
		wantStatus Status
		wantDB     CheckResult
		wantMLS    CheckResult
	}{
		{"all healthy", nil, nil, Healthy, CheckOK, CheckOK},
		{"provider down", nil, down, Degraded, CheckOK, CheckError},
		{"database down", down, nil, Unhealthy, CheckError, CheckOK},
		{"both down", down, down, Unhealthy, CheckError, CheckError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockDBPinger{err: tt.dbErr}, map[string]Checker{
				"provider:mls": &mockChecker{err: tt.mlsErr},
			})
			r := svc.Check(context.Background())

			if r.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", r.Status, tt.wantStatus)
			}
			if r.Checks["database"] != tt.wantDB {
				t.Errorf("database = %q, want %q", r.Checks["database"], tt.wantDB)
			}
			if r.Checks["provider:mls"] != tt.wantMLS {
				t.Errorf("provider:mls = %q, want %q", r.Checks["provider:mls"], tt.wantMLS)
			}
		})
	}
}

func TestCheck_NoCheckers(t *testing.T) {
	svc := New(&mockDBPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the database check, got %v", r.Checks)
	}
}

func TestNew_SkipsNilAndReservedNames(t *testing.T) {
	shadow := &mockChecker{err: errors.New("never called")}
	svc := New(&mockDBPinger{}, map[string]Checker{
		"interpreter": nil,
		"database":    shadow,
	})
	r := svc.Check(context.Background())

	if r.Status != Healthy || r.Checks["database"] != CheckOK {
		t.Errorf("unexpected report %+v", r)
	}
	if shadow.calls != 0 {
		t.Error("a checker must not shadow the database check")
	}
}
