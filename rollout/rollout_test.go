package rollout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeFleet is an in-memory fleet for exercising the coordinator.
type fakeFleet struct {
	mu       sync.Mutex
	members  []Member
	next     int
	maxBatch int // largest number of members missing at any point
	drained  []string
	healthy  map[string]bool // launched members report healthy unless false
	baseline int             // member count before the rollout
}

func newFakeFleet(n int, hash string) *fakeFleet {
	f := &fakeFleet{healthy: make(map[string]bool), baseline: n}
	for i := 0; i < n; i++ {
		f.members = append(f.members, Member{ID: fmt.Sprintf("i-%d", i), LaunchHash: hash})
	}
	return f
}

func (f *fakeFleet) ListMembers(ctx context.Context, fleetID string) ([]Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Member, len(f.members))
	copy(out, f.members)
	return out, nil
}

func (f *fakeFleet) DrainMember(ctx context.Context, fleetID, memberID string) error {
	f.mu.Lock()
	f.drained = append(f.drained, memberID)
	f.mu.Unlock()
	return nil
}

func (f *fakeFleet) TerminateMember(ctx context.Context, fleetID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.members {
		if m.ID == memberID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			break
		}
	}
	if missing := f.baseline - len(f.members); missing > f.maxBatch {
		f.maxBatch = missing
	}
	return nil
}

func (f *fakeFleet) LaunchMember(ctx context.Context, fleetID, launchHash string) (Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	m := Member{ID: fmt.Sprintf("i-new-%d", f.next), LaunchHash: launchHash}
	f.members = append(f.members, m)
	f.healthy[m.ID] = true
	return m, nil
}

func (f *fakeFleet) Healthy(ctx context.Context, memberID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy[memberID], nil
}

func testCoordinator(t *testing.T, f *fakeFleet) *Coordinator {
	t.Helper()
	return &Coordinator{
		Fleet:            f,
		Health:           f,
		PollInterval:     time.Millisecond,
		HealthyThreshold: 1,
		HealthTimeout:    50 * time.Millisecond,
		MaxAttempts:      2,
		Logger:           zaptest.NewLogger(t),
	}
}

func TestCoordinator_batchBound(t *testing.T) {
	// 4 members, 50% minimum healthy: at most 2 members may be out of
	// service at once.
	f := newFakeFleet(4, "v1")
	c := testCoordinator(t, f)

	report, err := c.Run(context.Background(), Request{
		Fleet:             "web",
		FleetID:           "fleet-1",
		Desired:           4,
		MinHealthyPercent: 50,
		LaunchHash:        "v2",
	})
	if err != nil {
		t.Fatalf("Run() err = %v", err)
	}
	if report.State != Done {
		t.Errorf("State = %s, want done", report.State)
	}
	if len(report.Replaced) != 4 {
		t.Errorf("Replaced %d members, want 4", len(report.Replaced))
	}
	if f.maxBatch > 2 {
		t.Errorf("at most %d members were in replacement at once, want <= 2", f.maxBatch)
	}

	// All members now run the new revision.
	for _, m := range f.members {
		if m.LaunchHash != "v2" {
			t.Errorf("member %s still runs %s", m.ID, m.LaunchHash)
		}
	}
}

func TestCoordinator_alreadyCurrent(t *testing.T) {
	f := newFakeFleet(2, "v1")
	c := testCoordinator(t, f)

	report, err := c.Run(context.Background(), Request{
		Fleet:             "web",
		FleetID:           "fleet-1",
		Desired:           2,
		MinHealthyPercent: 50,
		LaunchHash:        "v1",
	})
	if err != nil {
		t.Fatalf("Run() err = %v", err)
	}
	if len(report.Replaced) != 0 {
		t.Errorf("Replaced %d members, want 0", len(report.Replaced))
	}
	if len(f.drained) != 0 {
		t.Errorf("drained %v, want none", f.drained)
	}
}

func TestCoordinator_healthTimeout(t *testing.T) {
	// Replacements never report healthy: the rollout retries launches up
	// to MaxAttempts and then fails without touching further batches.
	f := newFakeFleet(4, "v1")
	c := testCoordinator(t, f)

	unhealthy := &unhealthyFleet{fakeFleet: f}
	c.Fleet = unhealthy
	c.Health = unhealthy

	report, err := c.Run(context.Background(), Request{
		Fleet:             "web",
		FleetID:           "fleet-1",
		Desired:           4,
		MinHealthyPercent: 50,
		LaunchHash:        "v2",
	})
	if err == nil {
		t.Fatal("Run() err = nil, want rollout failure")
	}
	if report.State != Failed {
		t.Errorf("State = %s, want failed", report.State)
	}
	if len(report.Unhealthy) != c.MaxAttempts {
		t.Errorf("Unhealthy = %d, want %d", len(report.Unhealthy), c.MaxAttempts)
	}
	if len(report.Replaced) != 0 {
		t.Errorf("Replaced = %v, want none", report.Replaced)
	}
}

// unhealthyFleet launches members that never pass their health check.
type unhealthyFleet struct {
	*fakeFleet
}

func (f *unhealthyFleet) LaunchMember(ctx context.Context, fleetID, launchHash string) (Member, error) {
	m, err := f.fakeFleet.LaunchMember(ctx, fleetID, launchHash)
	if err != nil {
		return m, err
	}
	f.mu.Lock()
	f.healthy[m.ID] = false
	f.mu.Unlock()
	return m, nil
}

func TestCoordinator_noHeadroom(t *testing.T) {
	// 100% minimum healthy leaves no room to take a member out of
	// service; the rollout fails up front instead of stalling.
	f := newFakeFleet(2, "v1")
	c := testCoordinator(t, f)

	report, err := c.Run(context.Background(), Request{
		Fleet:             "web",
		FleetID:           "fleet-1",
		Desired:           2,
		MinHealthyPercent: 100,
		LaunchHash:        "v2",
	})
	if err == nil {
		t.Fatal("Run() err = nil, want error")
	}
	if report.State != Failed {
		t.Errorf("State = %s, want failed", report.State)
	}
}

func TestCoordinator_cancel(t *testing.T) {
	f := newFakeFleet(4, "v1")
	c := testCoordinator(t, f)
	c.HealthTimeout = time.Minute

	unhealthy := &unhealthyFleet{fakeFleet: f}
	c.Fleet = unhealthy
	c.Health = unhealthy

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	report, err := c.Run(ctx, Request{
		Fleet:             "web",
		FleetID:           "fleet-1",
		Desired:           4,
		MinHealthyPercent: 50,
		LaunchHash:        "v2",
	})
	if err == nil {
		t.Fatal("Run() err = nil, want cancellation")
	}
	if report.State != Cancelled {
		t.Errorf("State = %s, want cancelled", report.State)
	}
}
