// Package guard gates sync operations: a sliding-window request counter and
// single-active-session tracking, both keyed by user id. Neither mechanism
// blocks; they only report, and the caller decides.
package guard

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type window struct {
	count       int
	lastRequest time.Time
}

type session struct {
	token     string
	expiresAt time.Time
}

type AccessGuard struct {
	maxRequests int
	windowSize  time.Duration
	sessionTTL  time.Duration

	mu       sync.Mutex
	windows  map[string]*window
	sessions map[string]session

	scheduler *scheduler
	logger    *zap.Logger
	now       func() time.Time
	onClosed  func(userID, reason string)
}

func NewAccessGuard(maxRequests int, windowSize, sessionTTL time.Duration, logger *zap.Logger) *AccessGuard {
	return &AccessGuard{
		maxRequests: maxRequests,
		windowSize:  windowSize,
		sessionTTL:  sessionTTL,
		windows:     make(map[string]*window),
		sessions:    make(map[string]session),
		scheduler:   newScheduler(),
		logger:      logger,
		now:         time.Now,
	}
}

// Stop shuts the expiry scheduler down. Pending expiries are dropped; the
// process is exiting anyway.
func (g *AccessGuard) Stop() {
	g.scheduler.stop()
}

// OnSessionClosed registers a callback fired whenever a session is displaced,
// expired or explicitly closed. Set once during wiring, before traffic.
func (g *AccessGuard) OnSessionClosed(fn func(userID, reason string)) {
	g.onClosed = fn
}

func (g *AccessGuard) notifyClosed(userID, reason string) {
	if g.onClosed != nil {
		g.onClosed(userID, reason)
	}
}

// IsRateLimited counts this request against the user's window and reports
// whether the window's budget is exceeded. A gap longer than the window
// since the previous request resets the counter first.
func (g *AccessGuard) IsRateLimited(userID string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[userID]
	if !ok {
		w = &window{}
		g.windows[userID] = w
	}

	if !w.lastRequest.IsZero() && now.Sub(w.lastRequest) > g.windowSize {
		w.count = 0
	}
	w.lastRequest = now
	w.count++

	limited := w.count > g.maxRequests
	if limited {
		g.logger.Warn("rate limit exceeded",
			zap.String("user_id", userID),
			zap.Int("requests", w.count))
	}
	return limited
}

// RegisterSession makes token the user's active session, displacing any
// previous one, and schedules its expiry.
func (g *AccessGuard) RegisterSession(userID, token string) {
	expiresAt := g.now().Add(g.sessionTTL)

	g.mu.Lock()
	prev, hadPrev := g.sessions[userID]
	g.sessions[userID] = session{token: token, expiresAt: expiresAt}
	g.mu.Unlock()

	if hadPrev && prev.token != token {
		g.notifyClosed(userID, "displaced")
	}

	g.scheduler.schedule(expiresAt, func() {
		g.expireSession(userID, token, expiresAt)
	})

	g.logger.Info("session registered",
		zap.String("user_id", userID),
		zap.Time("expires_at", expiresAt))
}

// IsActiveSession reports whether token is the user's current session. An
// informational signal only: presenting a stale token never rejects the
// request, it just tells the caller to re-register.
func (g *AccessGuard) IsActiveSession(userID, token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[userID]
	return ok && s.token == token
}

// CloseSession releases the session if token is still the active one, so a
// scheduled expiry never tears down a newer session.
func (g *AccessGuard) CloseSession(userID, token string) {
	g.mu.Lock()
	s, ok := g.sessions[userID]
	closed := ok && s.token == token
	if closed {
		delete(g.sessions, userID)
	}
	g.mu.Unlock()

	if closed {
		g.logger.Info("session closed", zap.String("user_id", userID))
		g.notifyClosed(userID, "closed")
	}
}

// expireSession is the scheduled end of one registration. It matches on both
// token and expiry so a timer left over from a closed-then-re-registered
// session never tears down the fresh registration.
func (g *AccessGuard) expireSession(userID, token string, expiresAt time.Time) {
	g.mu.Lock()
	s, ok := g.sessions[userID]
	expired := ok && s.token == token && s.expiresAt.Equal(expiresAt)
	if expired {
		delete(g.sessions, userID)
	}
	g.mu.Unlock()

	if expired {
		g.logger.Info("session expired", zap.String("user_id", userID))
		g.notifyClosed(userID, "expired")
	}
}
