package ssokit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/launchdeck/ssokit/gateway"
	"github.com/launchdeck/ssokit/role"
	"github.com/launchdeck/ssokit/store"
)

type fakeGateway struct {
	mu sync.Mutex

	authenticate func(token string, client ClientContext) (*ValidationResponse, error)
	validate     func(sessionID string) (*ValidationResponse, error)
	extend       func(sessionID string, hours int) (*gateway.ExtendResponse, error)
	revoke       func(sessionID, reason string) (*gateway.RevokeResponse, error)

	authCalls     int
	validateCalls int
	extendCalls   int
	revokeCalls   int
}

func (g *fakeGateway) Authenticate(_ context.Context, token string, client ClientContext) (*ValidationResponse, error) {
	g.mu.Lock()
	g.authCalls++
	fn := g.authenticate
	g.mu.Unlock()
	if fn == nil {
		return &ValidationResponse{Valid: false, Error: gateway.CodeInvalidToken}, nil
	}
	return fn(token, client)
}

func (g *fakeGateway) Validate(_ context.Context, sessionID string) (*ValidationResponse, error) {
	g.mu.Lock()
	g.validateCalls++
	fn := g.validate
	g.mu.Unlock()
	if fn == nil {
		return &ValidationResponse{Valid: false, Error: gateway.CodeSessionNotFound}, nil
	}
	return fn(sessionID)
}

func (g *fakeGateway) Extend(_ context.Context, sessionID string, hours int) (*gateway.ExtendResponse, error) {
	g.mu.Lock()
	g.extendCalls++
	fn := g.extend
	g.mu.Unlock()
	if fn == nil {
		return &gateway.ExtendResponse{Valid: false, Error: gateway.CodeSessionNotFound}, nil
	}
	return fn(sessionID, hours)
}

func (g *fakeGateway) Revoke(_ context.Context, sessionID, reason string) (*gateway.RevokeResponse, error) {
	g.mu.Lock()
	g.revokeCalls++
	fn := g.revoke
	g.mu.Unlock()
	if fn == nil {
		return &gateway.RevokeResponse{Success: true}, nil
	}
	return fn(sessionID, reason)
}

func (g *fakeGateway) ListActive(context.Context, string) ([]*Session, error) {
	return nil, nil
}

func (g *fakeGateway) Health(context.Context) (*gateway.HealthStatus, error) {
	return &gateway.HealthStatus{Healthy: true}, nil
}

func (g *fakeGateway) calls() (auth, validate, extend, revoke int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authCalls, g.validateCalls, g.extendCalls, g.revokeCalls
}

type fakeTimer struct {
	ch chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }
func (t *fakeTimer) Stop() bool          { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers chan *fakeTimer
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, timers: make(chan *fakeTimer, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(time.Duration) Timer {
	t := &fakeTimer{ch: make(chan time.Time, 1)}
	c.timers <- t
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) nextTimer(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-c.timers:
		return timer
	case <-time.After(2 * time.Second):
		t.Fatal("renewal loop never armed a timer")
		return nil
	}
}

type stubClientInfo struct{}

func (stubClientInfo) ClientIP(context.Context) (string, error) { return "203.0.113.7", nil }
func (stubClientInfo) UserAgent() string                        { return "ssokit-test/1.0" }

func testIdentity() *Identity {
	return &Identity{
		ID:       "user-1",
		Email:    "host@example.org",
		FullName: "Avery Host",
		Role:     RoleHost,
		Games:    []role.GameGrant{{Name: "quizdash"}},
	}
}

func testSession(now time.Time, ttl time.Duration) *Session {
	return &Session{
		SessionID:       "sess-1",
		UserID:          "user-1",
		Email:           "host@example.org",
		PermissionLevel: RoleHost,
		CreatedAt:       now,
		LastActivity:    now,
		ExpiresAt:       now.Add(ttl),
		IsActive:        true,
	}
}

func okAuthenticate(clock *fakeClock, ttl time.Duration) func(string, ClientContext) (*ValidationResponse, error) {
	return func(string, ClientContext) (*ValidationResponse, error) {
		return &ValidationResponse{
			Valid:   true,
			User:    testIdentity(),
			Session: testSession(clock.Now(), ttl),
		}, nil
	}
}

func okValidate(clock *fakeClock, ttl time.Duration) func(string) (*ValidationResponse, error) {
	return func(sessionID string) (*ValidationResponse, error) {
		sess := testSession(clock.Now(), ttl)
		sess.SessionID = sessionID
		return &ValidationResponse{Valid: true, User: testIdentity(), Session: sess}, nil
	}
}

func newTestCoordinator(t *testing.T, gw gateway.Gateway, clock Clock, kv store.KV, mutate func(*Config)) *Coordinator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Renewal.Enabled = false
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New().
		WithConfig(cfg).
		WithGateway(gw).
		WithStorage(kv).
		WithClock(clock).
		WithClientInfo(stubClientInfo{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func seedStoredSession(t *testing.T, kv store.KV, clock *fakeClock, ttl time.Duration) {
	t.Helper()
	s := store.NewStore(kv, "", clock.Now)
	ss := &store.StoredSession{Session: *testSession(clock.Now(), ttl), Identity: *testIdentity()}
	if err := s.Save(context.Background(), ss); err != nil {
		t.Fatalf("seeding stored session failed: %v", err)
	}
}

func TestStartWithURLTokenLogsInAndStripsToken(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	url := "https://play.example.org/join?game=quizdash&sso_token=tok-123"
	cleaned := c.Start(context.Background(), url)

	if strings.Contains(cleaned, "sso_token") {
		t.Fatalf("token not stripped from URL: %q", cleaned)
	}
	if !strings.Contains(cleaned, "game=quizdash") {
		t.Fatalf("unrelated query parameter lost: %q", cleaned)
	}
	state := c.State()
	if !state.IsAuthenticated() {
		t.Fatalf("expected authenticated state, got %+v", state)
	}
	if state.IsLoading {
		t.Fatal("loading flag still set after startup")
	}
	if state.User.Email != "host@example.org" {
		t.Fatalf("unexpected user: %+v", state.User)
	}
	if desc := c.Describe(context.Background()); !desc.HasSession {
		t.Fatal("session not persisted to storage")
	}
	auth, _, _, _ := gw.calls()
	if auth != 1 {
		t.Fatalf("expected 1 authenticate call, got %d", auth)
	}
}

func TestStartResumesStoredSession(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	kv := store.NewMemoryKV()
	seedStoredSession(t, kv, clock, 8*time.Hour)

	gw := &fakeGateway{validate: okValidate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, kv, nil)

	url := "https://play.example.org/lobby"
	if got := c.Start(context.Background(), url); got != url {
		t.Fatalf("URL without token must pass through unchanged, got %q", got)
	}
	if !c.IsAuthenticated() {
		t.Fatal("stored session not resumed")
	}
	auth, validate, _, _ := gw.calls()
	if auth != 0 || validate != 1 {
		t.Fatalf("expected validate-only startup, got auth=%d validate=%d", auth, validate)
	}
}

func TestStartRejectedStoredSessionFallsBackToUnauthenticated(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	kv := store.NewMemoryKV()
	seedStoredSession(t, kv, clock, 8*time.Hour)

	gw := &fakeGateway{validate: func(string) (*ValidationResponse, error) {
		return &ValidationResponse{Valid: false, Error: gateway.CodeSessionRevoked}, nil
	}}
	c := newTestCoordinator(t, gw, clock, kv, nil)

	c.Start(context.Background(), "https://play.example.org/lobby")

	if c.IsAuthenticated() {
		t.Fatal("rejected stored session must not authenticate")
	}
	if desc := c.Describe(context.Background()); desc.HasSession {
		t.Fatal("rejected stored session must be cleared from storage")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	url := "https://play.example.org/join?sso_token=tok-123"
	c.Start(context.Background(), url)
	c.Start(context.Background(), url)

	auth, validate, _, _ := gw.calls()
	if auth != 1 || validate != 0 {
		t.Fatalf("second Start must be a no-op, got auth=%d validate=%d", auth, validate)
	}
}

func TestLoginFailureSetsErrorAndClearsState(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: func(string, ClientContext) (*ValidationResponse, error) {
		return &ValidationResponse{
			Valid:   false,
			Error:   gateway.CodeInvalidToken,
			Message: "Token is invalid or expired",
		}, nil
	}}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	resp := c.Login(context.Background(), "bad-token")
	if resp == nil || resp.Valid {
		t.Fatalf("expected typed refusal, got %+v", resp)
	}

	state := c.State()
	if state.IsAuthenticated() {
		t.Fatal("failed login must not authenticate")
	}
	if state.Error != "Token is invalid or expired" {
		t.Fatalf("unexpected state error: %q", state.Error)
	}
	if state.IsLoading {
		t.Fatal("loading flag still set after failed login")
	}
	if desc := c.Describe(context.Background()); desc.HasSession {
		t.Fatal("failed login must not persist anything")
	}
}

func TestLoginNetworkFailureNeverReturnsError(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: func(string, ClientContext) (*ValidationResponse, error) {
		return nil, gateway.ErrNetwork
	}}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	resp := c.Login(context.Background(), "tok-123")
	if resp == nil || resp.Valid {
		t.Fatalf("transport failure must surface as invalid response, got %+v", resp)
	}
	if resp.Error != "network_error" {
		t.Fatalf("unexpected error code: %q", resp.Error)
	}
	if state := c.State(); state.Error == "" {
		t.Fatal("state error not set after transport failure")
	}
}

func TestLoginCoalescesConcurrentDuplicates(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{}
	gw.authenticate = func(string, ClientContext) (*ValidationResponse, error) {
		close(entered)
		<-release
		return &ValidationResponse{
			Valid:   true,
			User:    testIdentity(),
			Session: testSession(clock.Now(), 8*time.Hour),
		}, nil
	}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	var wg sync.WaitGroup
	results := make([]*ValidationResponse, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Login(context.Background(), "tok-123")
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = c.Login(context.Background(), "tok-123")
	}()

	// Give the duplicate a moment to join the in-flight exchange before
	// releasing the gateway.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	auth, _, _, _ := gw.calls()
	if auth != 1 {
		t.Fatalf("duplicate login must coalesce into one gateway call, got %d", auth)
	}
	if results[0] != results[1] {
		t.Fatal("coalesced calls must observe the same response")
	}
	if !c.IsAuthenticated() {
		t.Fatal("expected authenticated state after coalesced login")
	}
	if got := c.MetricsSnapshot().Counters[MetricLoginCoalesced]; got != 1 {
		t.Fatalf("expected 1 coalesced login recorded, got %d", got)
	}
}

func TestLogoutRevokesAndForgetsLocally(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	c.Login(context.Background(), "tok-123")
	c.Logout(context.Background())

	if c.IsAuthenticated() {
		t.Fatal("still authenticated after logout")
	}
	if desc := c.Describe(context.Background()); desc.HasSession {
		t.Fatal("storage slot survived logout")
	}
	_, _, _, revoke := gw.calls()
	if revoke != 1 {
		t.Fatalf("expected 1 revoke call, got %d", revoke)
	}

	// Logout without a session must not call the gateway again.
	c.Logout(context.Background())
	_, _, _, revoke = gw.calls()
	if revoke != 1 {
		t.Fatalf("logout without session must skip revoke, got %d calls", revoke)
	}
}

func TestLogoutSucceedsLocallyWhenRevokeFails(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{
		authenticate: okAuthenticate(clock, 8*time.Hour),
		revoke: func(string, string) (*gateway.RevokeResponse, error) {
			return nil, gateway.ErrNetwork
		},
	}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	c.Login(context.Background(), "tok-123")
	c.Logout(context.Background())

	if c.IsAuthenticated() {
		t.Fatal("logout must clear local state even when revoke fails")
	}
	if got := c.MetricsSnapshot().Counters[MetricRevokeFailed]; got != 1 {
		t.Fatalf("expected revoke failure recorded, got %d", got)
	}
}

func TestExtendWithoutSession(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	c := newTestCoordinator(t, &fakeGateway{}, clock, store.NewMemoryKV(), nil)

	if err := c.Extend(context.Background(), 4); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestExtendReplacesSession(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{
		authenticate: okAuthenticate(clock, 8*time.Hour),
		extend: func(sessionID string, hours int) (*gateway.ExtendResponse, error) {
			sess := testSession(clock.Now(), time.Duration(hours)*time.Hour)
			sess.SessionID = sessionID
			return &gateway.ExtendResponse{Valid: true, Session: sess}, nil
		},
	}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	c.Login(context.Background(), "tok-123")
	before := c.State().Session.ExpiresAt

	clock.advance(1 * time.Hour)
	if err := c.Extend(context.Background(), 12); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	after := c.State().Session.ExpiresAt
	if !after.After(before) {
		t.Fatalf("expiry not pushed out: before=%v after=%v", before, after)
	}
	if got := c.MetricsSnapshot().Counters[MetricSessionExtended]; got != 1 {
		t.Fatalf("expected 1 extension recorded, got %d", got)
	}
}

func TestExtendFailureLeavesStateUntouched(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{
		authenticate: okAuthenticate(clock, 8*time.Hour),
		extend: func(string, int) (*gateway.ExtendResponse, error) {
			return nil, gateway.ErrNetwork
		},
	}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	c.Login(context.Background(), "tok-123")
	before := c.State().Session.ExpiresAt

	if err := c.Extend(context.Background(), 4); err == nil {
		t.Fatal("expected error from failed extend")
	}
	if got := c.State().Session.ExpiresAt; !got.Equal(before) {
		t.Fatalf("failed extend mutated session expiry: %v -> %v", before, got)
	}
	if !c.IsAuthenticated() {
		t.Fatal("failed extend must not log out")
	}
}

func TestRefreshInvalidSessionCleansUpWithoutRevoke(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{
		authenticate: okAuthenticate(clock, 8*time.Hour),
		validate: func(string) (*ValidationResponse, error) {
			return &ValidationResponse{Valid: false, Error: gateway.CodeSessionExpired}, nil
		},
	}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	c.Login(context.Background(), "tok-123")
	c.Refresh(context.Background())

	if c.IsAuthenticated() {
		t.Fatal("invalidated session must clear state")
	}
	if desc := c.Describe(context.Background()); desc.HasSession {
		t.Fatal("invalidated session must clear storage")
	}
	_, _, _, revoke := gw.calls()
	if revoke != 0 {
		t.Fatalf("refresh cleanup must not revoke, got %d calls", revoke)
	}
	if got := c.MetricsSnapshot().Counters[MetricSessionInvalidated]; got != 1 {
		t.Fatalf("expected 1 invalidation recorded, got %d", got)
	}
}

func TestPermissionHelpersRequireAuthentication(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	if c.HasPermission(RoleHost) || c.HasGameAccess("quizdash") {
		t.Fatal("permission helpers must be false while unauthenticated")
	}

	c.Login(context.Background(), "tok-123")

	if !c.HasPermission(RoleHost) {
		t.Fatal("host must satisfy host requirement")
	}
	if c.HasPermission(RoleOrgAdmin) {
		t.Fatal("host must not satisfy org_admin requirement")
	}
	if !c.HasGameAccess("quizdash") {
		t.Fatal("granted game not accessible")
	}
	if c.HasGameAccess("wordstorm") {
		t.Fatal("ungranted game must not be accessible")
	}
}

func TestStateReturnsDeepCopy(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	c.Login(context.Background(), "tok-123")

	snap := c.State()
	snap.User.Email = "tampered@example.org"
	snap.User.Games[0].Name = "tampered"

	fresh := c.State()
	if fresh.User.Email != "host@example.org" {
		t.Fatal("state snapshot aliases coordinator-held identity")
	}
	if fresh.User.Games[0].Name != "quizdash" {
		t.Fatal("state snapshot aliases coordinator-held game grants")
	}
}

func TestRenewalExtendsNearExpiry(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	extended := make(chan struct{}, 1)
	gw := &fakeGateway{
		authenticate: okAuthenticate(clock, 8*time.Hour),
		extend: func(sessionID string, hours int) (*gateway.ExtendResponse, error) {
			sess := testSession(clock.Now(), time.Duration(hours)*time.Hour)
			sess.SessionID = sessionID
			select {
			case extended <- struct{}{}:
			default:
			}
			return &gateway.ExtendResponse{Valid: true, Session: sess}, nil
		},
	}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), func(cfg *Config) {
		cfg.Renewal.Enabled = true
	})

	c.Login(context.Background(), "tok-123")

	// First tick: 8h remaining, above the 2h threshold, no extension.
	timer := clock.nextTimer(t)
	timer.ch <- clock.Now()
	timer = clock.nextTimer(t)
	if _, _, extendCalls, _ := gw.calls(); extendCalls != 0 {
		t.Fatalf("renewal must not extend far from expiry, got %d calls", extendCalls)
	}

	// Second tick: 1h30m remaining, below the threshold.
	clock.advance(6*time.Hour + 30*time.Minute)
	timer.ch <- clock.Now()

	select {
	case <-extended:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never extended the session")
	}
	if got := c.MetricsSnapshot().Counters[MetricRenewalTriggered]; got != 1 {
		t.Fatalf("expected 1 renewal trigger recorded, got %d", got)
	}
}

func TestCloseDiscardsInFlightLogin(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{}
	gw.authenticate = func(string, ClientContext) (*ValidationResponse, error) {
		close(entered)
		<-release
		return &ValidationResponse{
			Valid:   true,
			User:    testIdentity(),
			Session: testSession(clock.Now(), 8*time.Hour),
		}, nil
	}

	cfg := DefaultConfig()
	cfg.Renewal.Enabled = false
	c, err := New().
		WithConfig(cfg).
		WithGateway(gw).
		WithClock(clock).
		WithClientInfo(stubClientInfo{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	done := make(chan *ValidationResponse, 1)
	go func() {
		done <- c.Login(context.Background(), "tok-123")
	}()
	<-entered

	c.Close()
	close(release)

	resp := <-done
	if resp == nil {
		t.Fatal("in-flight login must still return a response")
	}
	if c.IsAuthenticated() {
		t.Fatal("response arriving after Close must not mutate state")
	}
}

func TestAuditEventsReachSink(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	sink := NewChannelSink(16)
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}

	cfg := DefaultConfig()
	cfg.Renewal.Enabled = false
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: false}
	c, err := New().
		WithConfig(cfg).
		WithGateway(gw).
		WithClock(clock).
		WithClientInfo(stubClientInfo{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	c.Login(context.Background(), "tok-123")
	c.Close()

	var sawLogin bool
	for {
		select {
		case event := <-sink.Events():
			if event.EventType == EventLoginSuccess {
				if event.UserID != "user-1" || event.SessionID != "sess-1" {
					t.Fatalf("incomplete login event: %+v", event)
				}
				sawLogin = true
			}
			continue
		case <-time.After(time.Second):
		}
		break
	}
	if !sawLogin {
		t.Fatal("login_success audit event never reached the sink")
	}
}

func TestMetricsCountLoginOutcomes(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), func(cfg *Config) {
		cfg.Metrics.EnableLatencyHistograms = true
	})

	c.Login(context.Background(), "tok-123")

	snap := c.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected 1 login success, got %d", snap.Counters[MetricLoginSuccess])
	}
	var samples uint64
	for _, n := range snap.Histograms[MetricLoginLatency] {
		samples += n
	}
	if samples != 1 {
		t.Fatalf("expected 1 latency sample, got %d", samples)
	}
}

func TestBuilderRequiresGateway(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error when building without a gateway")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithGateway(&fakeGateway{}).WithClientInfo(stubClientInfo{})
	c, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer c.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingKV) Set(context.Context, string, string) error         { return store.ErrQuotaExceeded }
func (failingKV) Delete(context.Context, string) error              { return nil }

// failAfterKV lets the first allow writes through, then reports the backend
// unavailable.
type failAfterKV struct {
	mu    sync.Mutex
	inner *store.MemoryKV
	calls int
	allow int
}

func (k *failAfterKV) Get(ctx context.Context, key string) (string, bool, error) {
	return k.inner.Get(ctx, key)
}

func (k *failAfterKV) Set(ctx context.Context, key, value string) error {
	k.mu.Lock()
	k.calls++
	n := k.calls
	k.mu.Unlock()
	if n > k.allow {
		return store.ErrUnavailable
	}
	return k.inner.Set(ctx, key, value)
}

func (k *failAfterKV) Delete(ctx context.Context, key string) error {
	return k.inner.Delete(ctx, key)
}

func TestLoginSurfacesStorageWarning(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, failingKV{}, nil)

	resp := c.Login(context.Background(), "tok-123")
	if resp == nil || !resp.Valid {
		t.Fatalf("login must succeed despite a failed cache write, got %+v", resp)
	}
	if resp.StorageWarning == "" {
		t.Fatal("failed cache write must surface on the response")
	}

	state := c.State()
	if !state.IsAuthenticated() {
		t.Fatal("failed cache write must not clear the live session")
	}
	if state.StorageWarning == "" {
		t.Fatal("failed cache write must surface on the state snapshot")
	}
	if got := c.MetricsSnapshot().Counters[MetricStorageSaveFailed]; got != 1 {
		t.Fatalf("expected 1 save failure recorded, got %d", got)
	}
}

func TestLoginWithHealthyStorageCarriesNoWarning(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	gw := &fakeGateway{authenticate: okAuthenticate(clock, 8*time.Hour)}
	c := newTestCoordinator(t, gw, clock, store.NewMemoryKV(), nil)

	resp := c.Login(context.Background(), "tok-123")
	if resp.StorageWarning != "" {
		t.Fatalf("unexpected warning on persisted login: %q", resp.StorageWarning)
	}
	if got := c.State().StorageWarning; got != "" {
		t.Fatalf("unexpected warning in state: %q", got)
	}
}

func TestExtendSurfacesStorageWarning(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	kv := &failAfterKV{inner: store.NewMemoryKV(), allow: 1}
	gw := &fakeGateway{
		authenticate: okAuthenticate(clock, 8*time.Hour),
		extend: func(sessionID string, hours int) (*gateway.ExtendResponse, error) {
			sess := testSession(clock.Now(), time.Duration(hours)*time.Hour)
			sess.SessionID = sessionID
			return &gateway.ExtendResponse{Valid: true, Session: sess}, nil
		},
	}
	c := newTestCoordinator(t, gw, clock, kv, nil)

	c.Login(context.Background(), "tok-123")
	if got := c.State().StorageWarning; got != "" {
		t.Fatalf("login save succeeded but warning set: %q", got)
	}

	if err := c.Extend(context.Background(), 12); err != nil {
		t.Fatalf("Extend must succeed despite the failed cache write: %v", err)
	}
	if got := c.State().StorageWarning; got == "" {
		t.Fatal("failed extend cache write must surface on the state snapshot")
	}
}
