package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/launchdeck/ssokit/claims"
	"github.com/launchdeck/ssokit/session"
)

// RedisGatewayConfig defines a public type used by ssokit APIs.
//
// RedisGatewayConfig instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type RedisGatewayConfig struct {
	Prefix         string
	SessionTTL     time.Duration
	MaxExtendHours int
	TimeFunc       func() time.Time
}

// RedisGateway is the Redis-backed reference [Gateway]: it verifies tokens
// through the claims codec, mints session ids, and tracks session records
// plus a per-user index in Redis with TTL-bounded keys.
type RedisGateway struct {
	client *redis.Client
	codec  *claims.Manager
	config RedisGatewayConfig
	now    func() time.Time
}

// sessionRecord is the stored shape: the session plus the identity that
// opened it, so validate can hand both back without a second lookup.
type sessionRecord struct {
	Session  session.Session  `json:"session"`
	Identity session.Identity `json:"identity"`
}

// NewRedisGateway describes the newredisgateway operation and its observable behavior.
func NewRedisGateway(client *redis.Client, codec *claims.Manager, cfg RedisGatewayConfig) (*RedisGateway, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if codec == nil {
		return nil, errors.New("claims codec required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ssogw"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	if cfg.MaxExtendHours <= 0 {
		cfg.MaxExtendHours = 24
	}
	now := cfg.TimeFunc
	if now == nil {
		now = time.Now
	}

	return &RedisGateway{client: client, codec: codec, config: cfg, now: now}, nil
}

func (g *RedisGateway) sessionKey(id string) string { return g.config.Prefix + ":sess:" + id }
func (g *RedisGateway) userKey(uid string) string   { return g.config.Prefix + ":user:" + uid }

func (g *RedisGateway) Authenticate(ctx context.Context, token string, client ClientContext) (*ValidationResponse, error) {
	verified, err := g.codec.Verify(token)
	if err != nil {
		return &ValidationResponse{
			Valid:   false,
			Error:   CodeInvalidToken,
			Message: "Token is invalid or expired",
		}, nil
	}

	identity := verified.Identity()
	now := g.now()
	sess := session.Session{
		SessionID:       uuid.NewString(),
		UserID:          identity.ID,
		Email:           identity.Email,
		PermissionLevel: identity.Role,
		CreatedAt:       now,
		LastActivity:    now,
		ExpiresAt:       now.Add(g.config.SessionTTL),
		IsActive:        true,
		GameContext:     client.GameContext,
	}

	record := sessionRecord{Session: sess, Identity: *identity}
	if err := g.saveRecord(ctx, &record, g.config.SessionTTL); err != nil {
		return nil, err
	}

	pipe := g.client.Pipeline()
	pipe.SAdd(ctx, g.userKey(identity.ID), sess.SessionID)
	pipe.Expire(ctx, g.userKey(identity.ID), g.config.SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return &ValidationResponse{
		Valid:   true,
		User:    identity,
		Session: sess.Clone(),
	}, nil
}

func (g *RedisGateway) Validate(ctx context.Context, sessionID string) (*ValidationResponse, error) {
	record, err := g.loadRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &ValidationResponse{
			Valid:   false,
			Error:   CodeSessionNotFound,
			Message: "Session not found",
		}, nil
	}

	now := g.now()
	if record.Session.Expired(now) || !record.Session.IsActive {
		g.dropSession(ctx, record.Session.UserID, sessionID)
		return &ValidationResponse{
			Valid:   false,
			Error:   CodeSessionExpired,
			Message: "Session has expired",
		}, nil
	}

	record.Session.LastActivity = now
	if err := g.saveRecord(ctx, record, record.Session.RemainingLifetime(now)); err != nil {
		return nil, err
	}

	return &ValidationResponse{
		Valid:   true,
		User:    record.Identity.Clone(),
		Session: record.Session.Clone(),
	}, nil
}

func (g *RedisGateway) Extend(ctx context.Context, sessionID string, hours int) (*ExtendResponse, error) {
	record, err := g.loadRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &ExtendResponse{Valid: false, Error: CodeSessionNotFound}, nil
	}

	now := g.now()
	if record.Session.Expired(now) || !record.Session.IsActive {
		g.dropSession(ctx, record.Session.UserID, sessionID)
		return &ExtendResponse{Valid: false, Error: CodeSessionExpired}, nil
	}

	if hours <= 0 {
		hours = int(g.config.SessionTTL / time.Hour)
	}
	if hours > g.config.MaxExtendHours {
		hours = g.config.MaxExtendHours
	}

	record.Session.ExpiresAt = now.Add(time.Duration(hours) * time.Hour)
	record.Session.LastActivity = now
	if err := g.saveRecord(ctx, record, record.Session.RemainingLifetime(now)); err != nil {
		return nil, err
	}

	return &ExtendResponse{Valid: true, Session: record.Session.Clone()}, nil
}

func (g *RedisGateway) Revoke(ctx context.Context, sessionID, reason string) (*RevokeResponse, error) {
	record, err := g.loadRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &RevokeResponse{Success: true, Message: "session already revoked"}, nil
	}

	g.dropSession(ctx, record.Session.UserID, sessionID)

	message := "session revoked"
	if reason != "" {
		message = message + ": " + reason
	}
	return &RevokeResponse{Success: true, Message: message}, nil
}

func (g *RedisGateway) ListActive(ctx context.Context, userID string) ([]*session.Session, error) {
	ids, err := g.client.SMembers(ctx, g.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	now := g.now()
	sessions := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		record, err := g.loadRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		if record == nil || record.Session.Expired(now) {
			// Stale index entry; prune it.
			_ = g.client.SRem(ctx, g.userKey(userID), id).Err()
			continue
		}
		sessions = append(sessions, record.Session.Clone())
	}
	return sessions, nil
}

func (g *RedisGateway) Health(ctx context.Context) (*HealthStatus, error) {
	started := g.now()
	if err := g.client.Ping(ctx).Err(); err != nil {
		return &HealthStatus{Healthy: false}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	count := 0
	var cursor uint64
	for {
		keys, next, err := g.client.Scan(ctx, cursor, g.config.Prefix+":sess:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return &HealthStatus{
		Healthy:        true,
		Latency:        time.Since(started),
		ActiveSessions: count,
	}, nil
}

func (g *RedisGateway) loadRecord(ctx context.Context, sessionID string) (*sessionRecord, error) {
	payload, err := g.client.Get(ctx, g.sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		// Corrupt blob: drop the key so it cannot wedge validation forever.
		_ = g.client.Del(ctx, g.sessionKey(sessionID)).Err()
		return nil, nil
	}
	return &record, nil
}

func (g *RedisGateway) saveRecord(ctx context.Context, record *sessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := g.client.Set(ctx, g.sessionKey(record.Session.SessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return nil
}

func (g *RedisGateway) dropSession(ctx context.Context, userID, sessionID string) {
	pipe := g.client.Pipeline()
	pipe.Del(ctx, g.sessionKey(sessionID))
	if userID != "" {
		pipe.SRem(ctx, g.userKey(userID), sessionID)
	}
	_, _ = pipe.Exec(ctx)
}
