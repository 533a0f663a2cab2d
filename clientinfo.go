package ssokit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// unknownClientIP is substituted when the best-effort lookup fails; login
// must never block on it.
const unknownClientIP = "unknown"

// ClientInfoProvider supplies best-effort client metadata for authenticate
// calls. Implementations may fail; the coordinator substitutes defaults.
type ClientInfoProvider interface {
	ClientIP(ctx context.Context) (string, error)
	UserAgent() string
}

// httpClientInfo looks the public IP up from a JSON echo endpoint.
type httpClientInfo struct {
	lookupURL string
	userAgent string
	client    *http.Client
}

func newHTTPClientInfo(cfg ClientConfig) *httpClientInfo {
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &httpClientInfo{
		lookupURL: cfg.IPLookupURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *httpClientInfo) ClientIP(ctx context.Context) (string, error) {
	if p.lookupURL == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.lookupURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return strings.TrimSpace(body.IP), nil
}

func (p *httpClientInfo) UserAgent() string {
	return p.userAgent
}
