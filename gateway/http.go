package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/launchdeck/ssokit/session"
)

// HTTPConfig defines a public type used by ssokit APIs.
//
// HTTPConfig instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type HTTPConfig struct {
	BaseURL string
	// APIKey, when set, is sent as a bearer Authorization header.
	APIKey  string
	Timeout time.Duration
	Client  *http.Client
}

// HTTPGateway is the JSON-over-HTTP [Gateway] used against the portal
// backend. Transport failures and non-2xx statuses wrap [ErrNetwork]; typed
// refusals are decoded from the response body.
type HTTPGateway struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPGateway describes the newhttpgateway operation and its observable behavior.
func NewHTTPGateway(cfg HTTPConfig) (*HTTPGateway, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("base URL required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPGateway{config: cfg, client: client}, nil
}

func (g *HTTPGateway) Authenticate(ctx context.Context, token string, client ClientContext) (*ValidationResponse, error) {
	body := struct {
		Token  string        `json:"token"`
		Client ClientContext `json:"client"`
	}{Token: token, Client: client}

	var out ValidationResponse
	if err := g.post(ctx, "/v1/sso/authenticate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Validate(ctx context.Context, sessionID string) (*ValidationResponse, error) {
	body := struct {
		SessionID string `json:"session_id"`
	}{SessionID: sessionID}

	var out ValidationResponse
	if err := g.post(ctx, "/v1/sso/validate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Extend(ctx context.Context, sessionID string, hours int) (*ExtendResponse, error) {
	body := struct {
		SessionID string `json:"session_id"`
		Hours     int    `json:"hours"`
	}{SessionID: sessionID, Hours: hours}

	var out ExtendResponse
	if err := g.post(ctx, "/v1/sso/extend", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) Revoke(ctx context.Context, sessionID, reason string) (*RevokeResponse, error) {
	body := struct {
		SessionID string `json:"session_id"`
		Reason    string `json:"reason,omitempty"`
	}{SessionID: sessionID, Reason: reason}

	var out RevokeResponse
	if err := g.post(ctx, "/v1/sso/revoke", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) ListActive(ctx context.Context, userID string) ([]*session.Session, error) {
	body := struct {
		UserID string `json:"user_id"`
	}{UserID: userID}

	var out struct {
		Sessions []*session.Session `json:"sessions"`
	}
	if err := g.post(ctx, "/v1/sso/sessions", body, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (g *HTTPGateway) Health(ctx context.Context) (*HealthStatus, error) {
	started := time.Now()

	var out HealthStatus
	if err := g.post(ctx, "/v1/sso/health", struct{}{}, &out); err != nil {
		return nil, err
	}
	out.Latency = time.Since(started)
	return &out, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	// Typed refusals ride on 4xx bodies with the same shape; anything else
	// non-2xx is a transport-level failure.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d from %s", ErrNetwork, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %v", ErrNetwork, path, err)
	}
	return nil
}
