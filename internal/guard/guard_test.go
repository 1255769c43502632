package guard

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestGuard(t *testing.T) (*AccessGuard, *time.Time) {
	t.Helper()
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := NewAccessGuard(5, 10*time.Second, 30*time.Minute, zap.NewNop())
	g.now = func() time.Time { return current }
	t.Cleanup(g.Stop)
	return g, &current
}

func TestRateLimitWithinWindow(t *testing.T) {
	g, _ := newTestGuard(t)

	for i := 0; i < 5; i++ {
		if g.IsRateLimited("user-1") {
			t.Fatalf("request %d limited, want first 5 allowed", i+1)
		}
	}

	if !g.IsRateLimited("user-1") {
		t.Error("6th request in the window was not limited")
	}
}

func TestRateLimitResetsAfterGap(t *testing.T) {
	g, current := newTestGuard(t)

	for i := 0; i < 6; i++ {
		g.IsRateLimited("user-1")
	}
	if !g.IsRateLimited("user-1") {
		t.Fatal("expected user to be limited before the gap")
	}

	*current = current.Add(11 * time.Second)

	if g.IsRateLimited("user-1") {
		t.Error("request after a gap longer than the window was limited")
	}
}

func TestRateLimitIsPerUser(t *testing.T) {
	g, _ := newTestGuard(t)

	for i := 0; i < 6; i++ {
		g.IsRateLimited("user-1")
	}

	if g.IsRateLimited("user-2") {
		t.Error("user-2 limited by user-1's traffic")
	}
}

func TestSessionRegistrationAndDisplacement(t *testing.T) {
	g, _ := newTestGuard(t)

	g.RegisterSession("user-1", "token-a")
	if !g.IsActiveSession("user-1", "token-a") {
		t.Fatal("registered token is not active")
	}
	if g.IsActiveSession("user-1", "token-b") {
		t.Fatal("unregistered token reported active")
	}

	// A new registration displaces the previous session.
	g.RegisterSession("user-1", "token-b")
	if g.IsActiveSession("user-1", "token-a") {
		t.Error("displaced token still active")
	}
	if !g.IsActiveSession("user-1", "token-b") {
		t.Error("new token not active")
	}
}

func TestCloseSessionIgnoresStaleToken(t *testing.T) {
	g, _ := newTestGuard(t)

	g.RegisterSession("user-1", "token-a")
	g.RegisterSession("user-1", "token-b")

	// Closing with the displaced token must not tear down the newer session.
	g.CloseSession("user-1", "token-a")
	if !g.IsActiveSession("user-1", "token-b") {
		t.Error("stale close removed the active session")
	}

	g.CloseSession("user-1", "token-b")
	if g.IsActiveSession("user-1", "token-b") {
		t.Error("session still active after close")
	}
}

func TestSessionClosedCallback(t *testing.T) {
	g, _ := newTestGuard(t)

	var reasons []string
	g.OnSessionClosed(func(userID, reason string) {
		reasons = append(reasons, userID+":"+reason)
	})

	g.RegisterSession("user-1", "token-a")
	g.RegisterSession("user-1", "token-b")
	g.CloseSession("user-1", "token-b")
	g.CloseSession("user-1", "token-b")

	want := []string{"user-1:displaced", "user-1:closed"}
	if len(reasons) != len(want) {
		t.Fatalf("callbacks = %v, want %v", reasons, want)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Errorf("callback %d = %q, want %q", i, reasons[i], want[i])
		}
	}
}

func TestStaleExpiryIgnoredAfterReRegister(t *testing.T) {
	g, current := newTestGuard(t)

	g.RegisterSession("user-1", "token-a")
	firstExpiry := current.Add(30 * time.Minute)

	g.CloseSession("user-1", "token-a")
	*current = current.Add(time.Minute)
	g.RegisterSession("user-1", "token-a")

	// The first registration's timer fires after the token was closed and
	// registered again; it must not touch the fresh session.
	g.expireSession("user-1", "token-a", firstExpiry)
	if !g.IsActiveSession("user-1", "token-a") {
		t.Error("stale expiry closed the re-registered session")
	}

	g.expireSession("user-1", "token-a", current.Add(30*time.Minute))
	if g.IsActiveSession("user-1", "token-a") {
		t.Error("current registration's expiry did not close the session")
	}
}

func TestReRegisterRefreshesExpiry(t *testing.T) {
	g, current := newTestGuard(t)

	g.RegisterSession("user-1", "token-a")
	firstExpiry := current.Add(30 * time.Minute)

	*current = current.Add(10 * time.Minute)
	g.RegisterSession("user-1", "token-a")

	g.expireSession("user-1", "token-a", firstExpiry)
	if !g.IsActiveSession("user-1", "token-a") {
		t.Error("refreshed session was closed by the superseded timer")
	}
}

func TestSessionExpiry(t *testing.T) {
	g := NewAccessGuard(5, 10*time.Second, 50*time.Millisecond, zap.NewNop())
	t.Cleanup(g.Stop)

	g.RegisterSession("user-1", "token-a")
	if !g.IsActiveSession("user-1", "token-a") {
		t.Fatal("registered token is not active")
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.IsActiveSession("user-1", "token-a") {
		if time.Now().After(deadline) {
			t.Fatal("session did not expire")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerRunsTasksInOrder(t *testing.T) {
	s := newScheduler()
	defer s.stop()

	results := make(chan int, 2)
	s.schedule(time.Now().Add(40*time.Millisecond), func() { results <- 2 })
	s.schedule(time.Now().Add(10*time.Millisecond), func() { results <- 1 })

	for want := 1; want <= 2; want++ {
		select {
		case got := <-results:
			if got != want {
				t.Fatalf("task order = %d, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("scheduled task never ran")
		}
	}
}
