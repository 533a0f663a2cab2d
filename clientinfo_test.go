package ssokit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientInfoLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ip":"198.51.100.23"}`))
	}))
	defer srv.Close()

	p := newHTTPClientInfo(ClientConfig{
		IPLookupURL: srv.URL,
		UserAgent:   "ssokit-test/1.0",
	})

	ip, err := p.ClientIP(context.Background())
	if err != nil {
		t.Fatalf("ClientIP failed: %v", err)
	}
	if ip != "198.51.100.23" {
		t.Fatalf("ClientIP = %q, want 198.51.100.23", ip)
	}
	if p.UserAgent() != "ssokit-test/1.0" {
		t.Fatalf("unexpected user agent: %q", p.UserAgent())
	}
}

func TestHTTPClientInfoWithoutLookupURL(t *testing.T) {
	p := newHTTPClientInfo(ClientConfig{})

	ip, err := p.ClientIP(context.Background())
	if err != nil {
		t.Fatalf("empty lookup URL must not error: %v", err)
	}
	if ip != "" {
		t.Fatalf("expected empty IP, got %q", ip)
	}
}

func TestHTTPClientInfoUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := newHTTPClientInfo(ClientConfig{
		IPLookupURL:   srv.URL,
		LookupTimeout: 500 * time.Millisecond,
	})

	if _, err := p.ClientIP(context.Background()); err == nil {
		t.Fatal("expected error from unreachable lookup endpoint")
	}
}
