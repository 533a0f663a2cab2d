package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/launchdeck/ssokit/session"
)

// DefaultKey is the single well-known storage slot for the cached session.
const DefaultKey = "ssokit.session"

// StoredSession defines a public type used by ssokit APIs.
//
// StoredSession is the on-disk representation: the session record with its
// identity under one key. Structural validity is the presence of session_id,
// user_id, and email; there is no separate version envelope.
type StoredSession struct {
	session.Session
	Identity session.Identity `json:"identity"`
}

func (ss *StoredSession) structurallyValid() bool {
	return ss != nil && ss.SessionID != "" && ss.UserID != "" && ss.Email != ""
}

// Description defines a public type used by ssokit APIs.
//
// Description is a diagnostics view of the slot that does not require the
// caller to perform a full load.
type Description struct {
	HasSession bool
	// SessionAge is whole seconds since created_at, clamped at zero so a
	// skewed clock never reports a negative age.
	SessionAge int64
	UserEmail  string
}

// Store defines a public type used by ssokit APIs.
//
// Store instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Store struct {
	kv  KV
	key string
	now func() time.Time
}

// NewStore describes the newstore operation and its observable behavior.
//
// An empty key selects [DefaultKey]; a nil clock selects time.Now.
func NewStore(kv KV, key string, now func() time.Time) *Store {
	if key == "" {
		key = DefaultKey
	}
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, key: key, now: now}
}

// Save describes the save operation and its observable behavior.
//
// Save serializes the full stored session under the slot. Storage failures
// are classified into [ErrQuotaExceeded] or [ErrUnavailable]; a failed save
// never panics and leaves any previous slot content untouched.
func (s *Store) Save(ctx context.Context, ss *StoredSession) error {
	if !ss.structurallyValid() {
		return fmt.Errorf("refusing to save structurally invalid session")
	}

	payload, err := json.Marshal(ss)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return err
		}
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Load describes the load operation and its observable behavior.
//
// Load returns (nil, nil) when the slot is empty or holds corrupted data; a
// corrupt slot is cleared in the same call so the next load starts clean. A
// storage transport failure returns (nil, err) and the caller treats it as
// "no session".
func (s *Store) Load(ctx context.Context) (*StoredSession, error) {
	payload, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok || payload == "" {
		return nil, nil
	}

	var ss StoredSession
	if err := json.Unmarshal([]byte(payload), &ss); err != nil {
		s.Clear(ctx)
		return nil, nil
	}
	if !ss.structurallyValid() {
		s.Clear(ctx)
		return nil, nil
	}

	return &ss, nil
}

// Clear describes the clear operation and its observable behavior.
//
// Clear is best-effort: clearing is itself failure recovery, so storage
// errors are logged and swallowed.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		log.Printf("ssokit: clearing session slot failed: %v", err)
	}
}

// Describe describes the describe operation and its observable behavior.
func (s *Store) Describe(ctx context.Context) Description {
	ss, err := s.Load(ctx)
	if err != nil || ss == nil {
		return Description{}
	}

	age := int64(s.now().Sub(ss.CreatedAt).Seconds())
	if age < 0 {
		age = 0
	}

	return Description{
		HasSession: true,
		SessionAge: age,
		UserEmail:  ss.Email,
	}
}
