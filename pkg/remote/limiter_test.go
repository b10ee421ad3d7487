package remote

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewLimiter(1000, 3, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("burst acquisitions should not block")
	}
}

func TestLimiterHonorsCancellation(t *testing.T) {
	l := NewLimiter(0.001, 1, nil)
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Acquire(cancelled); err == nil {
		t.Fatal("expected error from cancelled wait")
	}
}

func TestThrottledPassesThroughCallsAndErrors(t *testing.T) {
	sim := NewSimulator()
	sim.AddGuild("g1")
	client := NewThrottled(sim, NewLimiter(1000, 10, nil), nil)
	ctx := context.Background()

	role, err := client.CreateRole(ctx, "g1", CreateRoleParams{Name: "Moderator"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	roles, err := client.ListRoles(ctx, "g1")
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	// The created role plus the guild's implicit base role.
	if len(roles) != 2 {
		t.Errorf("roles = %+v", roles)
	}
	found := false
	for _, r := range roles {
		if r.ID == role.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("created role missing from listing: %+v", roles)
	}

	sim.FailNext("create_role", NewPermanentError("duplicate", nil).WithCode(ErrCodeAlreadyExists))
	if _, err := client.CreateRole(ctx, "g1", CreateRoleParams{Name: "Moderator"}); !IsPermanent(err) {
		t.Errorf("error class lost through throttling: %v", err)
	}
}
