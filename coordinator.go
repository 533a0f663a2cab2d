package ssokit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	internalaudit "github.com/launchdeck/ssokit/internal/audit"

	"github.com/launchdeck/ssokit/gateway"
	"github.com/launchdeck/ssokit/role"
	"github.com/launchdeck/ssokit/store"
)

// State defines a public type used by ssokit APIs.
//
// State is the coordinator's externally visible snapshot: the single source
// of truth consumed by UI layers. Error is only ever set alongside cleared
// User/Session; the coordinator never presents trusted state next to an
// error.
type State struct {
	User      *Identity
	Session   *Session
	IsLoading bool
	Error     string

	// StorageWarning is set when the session is live but its last cache
	// write failed, meaning it will not survive a restart.
	StorageWarning string
}

// IsAuthenticated reports whether both a verified user and a live session
// are present.
func (s State) IsAuthenticated() bool {
	return s.User != nil && s.Session != nil
}

type loginFlight struct {
	done chan struct{}
	resp *ValidationResponse
}

// Coordinator defines a public type used by ssokit APIs.
//
// Coordinator owns the session lifecycle state machine. Its public methods
// never leak internal errors: every failure maps onto a typed response or
// the State.Error field. Construct it through [Builder.Build].
type Coordinator struct {
	config     Config
	gateway    gateway.Gateway
	store      *store.Store
	clock      Clock
	clientInfo ClientInfoProvider
	audit      *internalaudit.Dispatcher
	metrics    *Metrics

	mu      sync.Mutex
	state   State
	started bool
	closed  bool
	// epoch is bumped on logout/teardown; in-flight responses from an older
	// epoch are discarded without touching state.
	epoch   uint64
	flights map[string]*loginFlight

	renewalStop chan struct{}
}

// State describes the state operation and its observable behavior.
//
// State returns a deep copy; callers can never mutate coordinator-held
// identity or session data through it.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.state
	out.User = c.state.User.Clone()
	out.Session = c.state.Session.Clone()
	return out
}

// IsAuthenticated describes the isauthenticated operation and its observable behavior.
func (c *Coordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsAuthenticated()
}

// Start describes the start operation and its observable behavior.
//
// Start runs the startup sequence once: resume the cached session if the
// backend still accepts it, otherwise log in with a token found in
// currentURL, otherwise settle into the unauthenticated state. It returns
// currentURL with the one-time token stripped after a successful login so
// the caller can replace the visible location. Repeat calls are no-ops.
func (c *Coordinator) Start(ctx context.Context, currentURL string) string {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return currentURL
	}
	c.started = true
	c.state.IsLoading = true
	c.mu.Unlock()

	defer c.setLoading(false)

	if c.resumeStoredSession(ctx) {
		return currentURL
	}

	if token := TokenFromURL(currentURL); token != "" {
		if resp := c.Login(ctx, token); resp.Valid {
			return StripToken(currentURL)
		}
	}

	return currentURL
}

// Login describes the login operation and its observable behavior.
//
// Login exchanges the token for a session through the gateway and never
// returns an error: transport failures and typed refusals alike surface as a
// ValidationResponse with Valid false, mirrored into State.Error. A
// successful exchange whose session cache write failed carries the failure
// in StorageWarning instead. Duplicate concurrent calls for the same token
// are coalesced into a single gateway authentication.
func (c *Coordinator) Login(ctx context.Context, token string) *ValidationResponse {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &ValidationResponse{Valid: false, Error: "coordinator_closed", Message: ErrCoordinatorClosed.Error()}
	}
	if flight, ok := c.flights[token]; ok {
		c.mu.Unlock()
		c.metrics.Inc(MetricLoginCoalesced)
		<-flight.done
		return flight.resp
	}
	flight := &loginFlight{done: make(chan struct{})}
	if c.flights == nil {
		c.flights = make(map[string]*loginFlight)
	}
	c.flights[token] = flight
	c.state.IsLoading = true
	c.state.Error = ""
	epoch := c.epoch
	c.mu.Unlock()

	resp := c.doLogin(ctx, token, epoch)

	flight.resp = resp
	close(flight.done)

	c.mu.Lock()
	delete(c.flights, token)
	c.mu.Unlock()

	return resp
}

func (c *Coordinator) doLogin(ctx context.Context, token string, epoch uint64) *ValidationResponse {
	started := c.clock.Now()
	client := c.gatherClientContext(ctx)

	resp, err := c.gateway.Authenticate(ctx, token, client)
	if err != nil {
		resp = &ValidationResponse{Valid: false, Error: "network_error", Message: err.Error()}
	}
	if resp == nil {
		resp = &ValidationResponse{Valid: false, Error: "empty_response", Message: "authentication backend returned no response"}
	}
	if resp.Valid && (resp.User == nil || resp.Session == nil) {
		resp = &ValidationResponse{Valid: false, Error: "incomplete_response", Message: "authentication backend omitted user or session"}
	}

	c.metrics.Observe(MetricLoginLatency, c.clock.Now().Sub(started))

	if !resp.Valid {
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, AuditEvent{
			EventType: EventLoginFailure,
			IP:        client.IPAddress,
			Success:   false,
			Error:     failureMessage(resp),
		})

		c.mu.Lock()
		if !c.closed && epoch == c.epoch {
			c.state.User = nil
			c.state.Session = nil
			c.state.Error = failureMessage(resp)
			c.state.StorageWarning = ""
			c.state.IsLoading = false
		}
		c.mu.Unlock()
		return resp
	}

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		// Torn down while the call was in flight; discard.
		c.mu.Unlock()
		return resp
	}
	c.state.User = resp.User
	c.state.Session = resp.Session
	c.state.Error = ""
	c.state.IsLoading = false
	c.mu.Unlock()

	resp.StorageWarning = c.persist(ctx, resp.User, resp.Session, epoch)
	c.armRenewal()
	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    resp.User.ID,
		SessionID: resp.Session.SessionID,
		Role:      string(resp.User.Role),
		IP:        client.IPAddress,
		Success:   true,
	})

	return resp
}

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes the session best-effort, then unconditionally forgets it
// locally: a failed revoke is logged, never fatal. The renewal timer is torn
// down and in-flight responses from before the logout are discarded.
func (c *Coordinator) Logout(ctx context.Context) {
	c.mu.Lock()
	user := c.state.User
	sess := c.state.Session
	c.epoch++
	c.state = State{}
	c.mu.Unlock()

	c.stopRenewal()

	if sess != nil {
		resp, err := c.gateway.Revoke(ctx, sess.SessionID, "user logout")
		if err != nil || (resp != nil && !resp.Success) {
			c.metrics.Inc(MetricRevokeFailed)
			log.Printf("ssokit: best-effort session revoke failed: %v", err)
		}
	}
	c.store.Clear(ctx)

	c.metrics.Inc(MetricLogout)
	event := AuditEvent{EventType: EventLogout, Success: true}
	if user != nil {
		event.UserID = user.ID
		event.Role = string(user.Role)
	}
	if sess != nil {
		event.SessionID = sess.SessionID
	}
	c.emitAudit(ctx, event)
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh re-validates the cached session id against the gateway. When the
// backend no longer accepts it, the coordinator performs the same local
// cleanup as Logout but skips the revoke call. A no-op without a session.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.mu.Lock()
	sess := c.state.Session
	epoch := c.epoch
	c.mu.Unlock()
	if sess == nil {
		return
	}

	resp, err := c.gateway.Validate(ctx, sess.SessionID)
	if err != nil || resp == nil || !resp.Valid {
		c.invalidateLocal(ctx, epoch)
		return
	}

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	if resp.User != nil {
		c.state.User = resp.User
	}
	if resp.Session != nil {
		c.state.Session = resp.Session
	}
	user := c.state.User
	current := c.state.Session
	c.mu.Unlock()

	c.persist(ctx, user, current, epoch)
	c.metrics.Inc(MetricSessionValidated)
}

// Extend describes the extend operation and its observable behavior.
//
// Extend pushes the session expiry out through the gateway and re-persists
// the replaced session. It fails with [ErrNoActiveSession] when nothing is
// authenticated and leaves state untouched on gateway failure.
func (c *Coordinator) Extend(ctx context.Context, hours int) error {
	c.mu.Lock()
	user := c.state.User
	sess := c.state.Session
	epoch := c.epoch
	c.mu.Unlock()
	if sess == nil {
		return ErrNoActiveSession
	}

	if hours <= 0 {
		hours = c.config.Session.DefaultExtendHours
	}

	resp, err := c.gateway.Extend(ctx, sess.SessionID, hours)
	if err != nil {
		c.metrics.Inc(MetricExtendFailed)
		return fmt.Errorf("extend session: %w", err)
	}
	if resp == nil || !resp.Valid || resp.Session == nil {
		c.metrics.Inc(MetricExtendFailed)
		code := "extend refused"
		if resp != nil && resp.Error != "" {
			code = resp.Error
		}
		return fmt.Errorf("%w: %s", ErrSessionInvalid, code)
	}

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}
	c.state.Session = resp.Session
	c.mu.Unlock()

	c.persist(ctx, user, resp.Session, epoch)
	c.metrics.Inc(MetricSessionExtended)
	c.emitAudit(ctx, AuditEvent{
		EventType: EventSessionRenewed,
		UserID:    resp.Session.UserID,
		SessionID: resp.Session.SessionID,
		Success:   true,
	})
	return nil
}

// HasPermission describes the haspermission operation and its observable behavior.
//
// HasPermission is false while unauthenticated; otherwise the user's role
// must rank at or above requiredRole.
func (c *Coordinator) HasPermission(requiredRole Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsAuthenticated() {
		return false
	}
	return role.HasPermission(c.state.User.Role, requiredRole)
}

// HasGameAccess describes the hasgameaccess operation and its observable behavior.
func (c *Coordinator) HasGameAccess(game string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsAuthenticated() {
		return false
	}
	return role.HasGameAccess(c.state.User.Games, game)
}

// Describe describes the describe operation and its observable behavior.
//
// Describe reports the storage slot diagnostics without requiring a full
// load by the caller.
func (c *Coordinator) Describe(ctx context.Context) store.Description {
	return c.store.Describe(ctx)
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (c *Coordinator) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (c *Coordinator) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close describes the close operation and its observable behavior.
//
// Close tears the coordinator down: the renewal timer stops, the audit
// dispatcher drains, and results of still-in-flight calls are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.state.IsLoading = false
	c.mu.Unlock()

	c.stopRenewal()
	c.audit.Close()
}

func (c *Coordinator) resumeStoredSession(ctx context.Context) bool {
	stored, err := c.store.Load(ctx)
	if err != nil || stored == nil {
		return false
	}

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.gateway.Validate(ctx, stored.SessionID)
	if err != nil || resp == nil || !resp.Valid {
		c.store.Clear(ctx)
		c.metrics.Inc(MetricSessionInvalidated)
		c.emitAudit(ctx, AuditEvent{
			EventType: EventSessionInvalidated,
			UserID:    stored.UserID,
			SessionID: stored.SessionID,
			Success:   false,
			Error:     failureMessage(resp),
		})
		return false
	}

	user := resp.User
	if user == nil {
		user = stored.Identity.Clone()
	}
	sess := resp.Session
	if sess == nil {
		sess = stored.Session.Clone()
	}

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		return false
	}
	c.state.User = user
	c.state.Session = sess
	c.state.Error = ""
	c.mu.Unlock()

	c.persist(ctx, user, sess, epoch)
	c.armRenewal()
	c.metrics.Inc(MetricSessionValidated)
	c.emitAudit(ctx, AuditEvent{
		EventType: EventSessionValidated,
		UserID:    user.ID,
		SessionID: sess.SessionID,
		Role:      string(user.Role),
		Success:   true,
	})
	return true
}

// invalidateLocal performs the logout cleanup without the revoke call; the
// session is already considered gone server-side.
func (c *Coordinator) invalidateLocal(ctx context.Context, epoch uint64) {
	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.epoch++
	user := c.state.User
	sess := c.state.Session
	c.state = State{}
	c.mu.Unlock()

	c.stopRenewal()
	c.store.Clear(ctx)

	c.metrics.Inc(MetricSessionInvalidated)
	event := AuditEvent{EventType: EventSessionInvalidated, Success: false}
	if user != nil {
		event.UserID = user.ID
	}
	if sess != nil {
		event.SessionID = sess.SessionID
	}
	c.emitAudit(ctx, event)
}

func (c *Coordinator) gatherClientContext(ctx context.Context) ClientContext {
	info := ClientContext{
		UserAgent:   c.clientInfo.UserAgent(),
		GameContext: c.config.Client.GameContext,
	}
	if info.UserAgent == "" {
		info.UserAgent = "unknown"
	}

	lookupCtx := ctx
	if c.config.Client.LookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, c.config.Client.LookupTimeout)
		defer cancel()
	}

	// Best-effort: a failed lookup must never block login.
	ip, err := c.clientInfo.ClientIP(lookupCtx)
	if err != nil || ip == "" {
		ip = unknownClientIP
	}
	info.IPAddress = ip
	return info
}

// persist writes the session to the local cache. A storage failure does not
// fail the flow itself: the session is live server-side and in memory. The
// returned warning is mirrored into State.StorageWarning so callers can tell
// a fully persisted session from one that will not survive a restart.
func (c *Coordinator) persist(ctx context.Context, user *Identity, sess *Session, epoch uint64) string {
	if user == nil || sess == nil {
		return ""
	}
	var warning string
	ss := &store.StoredSession{Session: *sess, Identity: *user}
	if err := c.store.Save(ctx, ss); err != nil {
		c.metrics.Inc(MetricStorageSaveFailed)
		log.Printf("ssokit: session cache save failed, re-login will be required after restart: %v", err)
		warning = fmt.Sprintf("session cache save failed: %v", err)
	}

	c.mu.Lock()
	if !c.closed && epoch == c.epoch {
		c.state.StorageWarning = warning
	}
	c.mu.Unlock()
	return warning
}

func (c *Coordinator) armRenewal() {
	if !c.config.Renewal.Enabled {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.renewalStop != nil {
		close(c.renewalStop)
	}
	stop := make(chan struct{})
	c.renewalStop = stop
	c.mu.Unlock()

	go c.renewalLoop(stop)
}

func (c *Coordinator) stopRenewal() {
	c.mu.Lock()
	if c.renewalStop != nil {
		close(c.renewalStop)
		c.renewalStop = nil
	}
	c.mu.Unlock()
}

func (c *Coordinator) renewalLoop(stop chan struct{}) {
	for {
		timer := c.clock.NewTimer(c.config.Renewal.Interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C():
		}

		c.mu.Lock()
		sess := c.state.Session
		c.mu.Unlock()
		if sess == nil {
			return
		}

		if sess.RemainingLifetime(c.clock.Now()) < c.config.Renewal.Threshold {
			c.metrics.Inc(MetricRenewalTriggered)
			if err := c.Extend(context.Background(), c.config.Session.DefaultExtendHours); err != nil {
				if errors.Is(err, ErrSessionInvalid) {
					// The backend no longer accepts the session; fall back to
					// the refresh cleanup path.
					c.Refresh(context.Background())
					return
				}
				log.Printf("ssokit: background renewal failed, will retry: %v", err)
			}
		}
	}
}

func (c *Coordinator) setLoading(loading bool) {
	c.mu.Lock()
	c.state.IsLoading = loading
	c.mu.Unlock()
}

func (c *Coordinator) emitAudit(ctx context.Context, event AuditEvent) {
	if c.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.clock.Now()
	}
	c.audit.Emit(ctx, event)
}

func failureMessage(resp *ValidationResponse) string {
	switch {
	case resp == nil:
		return "session validation failed"
	case resp.Message != "":
		return resp.Message
	case resp.Error != "":
		return resp.Error
	default:
		return "authentication failed"
	}
}
