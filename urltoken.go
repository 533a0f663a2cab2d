package ssokit

import "net/url"

// TokenParam is the query parameter carrying the one-time login token.
const TokenParam = "sso_token"

// TokenFromURL extracts the one-time login token from rawURL, or returns ""
// when the parameter is absent or the URL does not parse.
func TokenFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get(TokenParam)
}

// StripToken returns rawURL with the token parameter removed. The caller is
// expected to replace (not push) the current location with the result so a
// reload or a shared link never replays the token. An unparseable URL is
// returned unchanged.
func StripToken(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	if !query.Has(TokenParam) {
		return rawURL
	}
	query.Del(TokenParam)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
