package ssokit

import "testing"

func TestTokenFromURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"present", "https://play.example.org/join?sso_token=tok-123", "tok-123"},
		{"present with siblings", "https://play.example.org/join?game=quizdash&sso_token=tok-123&v=2", "tok-123"},
		{"absent", "https://play.example.org/join?game=quizdash", ""},
		{"empty value", "https://play.example.org/join?sso_token=", ""},
		{"no query", "https://play.example.org/join", ""},
		{"unparseable", "https://play.example.org/%zz?sso_token=tok-123", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TokenFromURL(tc.url); got != tc.want {
				t.Fatalf("TokenFromURL(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestStripToken(t *testing.T) {
	got := StripToken("https://play.example.org/join?game=quizdash&sso_token=tok-123&v=2")
	want := "https://play.example.org/join?game=quizdash&v=2"
	if got != want {
		t.Fatalf("StripToken = %q, want %q", got, want)
	}
}

func TestStripTokenWithoutTokenIsIdentity(t *testing.T) {
	url := "https://play.example.org/join?game=quizdash&v=2"
	if got := StripToken(url); got != url {
		t.Fatalf("StripToken rewrote a token-free URL: %q", got)
	}
}

func TestStripTokenUnparseableURLPassesThrough(t *testing.T) {
	url := "https://play.example.org/%zz?sso_token=tok-123"
	if got := StripToken(url); got != url {
		t.Fatalf("StripToken must leave unparseable URLs alone, got %q", got)
	}
}
