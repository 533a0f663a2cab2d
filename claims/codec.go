package claims

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/launchdeck/ssokit/role"
	"github.com/launchdeck/ssokit/session"
)

// TokenSchemaVersion is the claims schema version embedded into every token
// and checked on verification to support forward evolution.
const TokenSchemaVersion = 1

// PurposeRoleToken is the issue_context purpose tag for role-scoped reissues.
const PurposeRoleToken = "role-based-token"

var (
	// ErrMalformed is an exported constant or variable used by the session layer.
	ErrMalformed = errors.New("token malformed")
	// ErrSignatureInvalid is an exported constant or variable used by the session layer.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is an exported constant or variable used by the session layer.
	ErrExpired = errors.New("token expired")
	// ErrIssuerMismatch is an exported constant or variable used by the session layer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")
	// ErrAudienceMismatch is an exported constant or variable used by the session layer.
	ErrAudienceMismatch = errors.New("token audience mismatch")
	// ErrUnsupportedVersion is an exported constant or variable used by the session layer.
	ErrUnsupportedVersion = errors.New("unsupported token schema version")
	// ErrInvalidIdentity is an exported constant or variable used by the session layer.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInsufficientPermissions is an exported constant or variable used by the session layer.
	ErrInsufficientPermissions = errors.New("insufficient permissions for role reissue")
	// ErrUnknownEnvironment is an exported constant or variable used by the session layer.
	ErrUnknownEnvironment = errors.New("unknown signing environment")
)

// Config defines a public type used by ssokit APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	Issuer   string
	Audience string

	// Environment selects the default signing key from Secrets. Tokens carry
	// the environment name in their header so verification picks the same key.
	Environment string
	Secrets     map[string][]byte

	DefaultTTL   time.Duration
	RoleTokenTTL time.Duration
	Leeway       time.Duration

	// TimeFunc overrides the clock, primarily for expiry-boundary tests.
	TimeFunc func() time.Time
}

// Claims defines a public type used by ssokit APIs.
//
// Claims is the signed payload: registered fields plus the identity mirror,
// derived permissions, and provenance. Verification returns it exactly as
// generation embedded it.
type Claims struct {
	UserID           string            `json:"user_id"`
	Email            string            `json:"email"`
	FullName         string            `json:"full_name,omitempty"`
	Role             role.Role         `json:"role"`
	Games            []role.GameGrant  `json:"games,omitempty"`
	OrganizationType string            `json:"organization_type,omitempty"`
	Permissions      role.Capabilities `json:"permissions"`
	AllowedGames     []string          `json:"allowed_games,omitempty"`
	TokenVersion     int               `json:"token_version"`
	IssueContext     map[string]string `json:"issue_context,omitempty"`
	Custom           map[string]string `json:"custom,omitempty"`
	jwt.RegisteredClaims
}

// Identity reconstructs the identity carried by the claims. The returned
// value is a copy; mutating it does not touch the claims.
func (c *Claims) Identity() *session.Identity {
	if c == nil {
		return nil
	}
	id := &session.Identity{
		ID:               c.UserID,
		Email:            c.Email,
		FullName:         c.FullName,
		Role:             c.Role,
		OrganizationType: c.OrganizationType,
	}
	if len(c.Games) > 0 {
		id.Games = make([]role.GameGrant, len(c.Games))
		copy(id.Games, c.Games)
	}
	return id
}

// GenerateOptions defines a public type used by ssokit APIs.
//
// ExpirationHours overrides the configured default TTL when non-zero.
// Negative values produce an already-expired token; verification rejects it
// with [ErrExpired].
type GenerateOptions struct {
	ExpirationHours int
	Environment     string
	IssueContext    map[string]string
	CustomClaims    map[string]string
}

// Manager defines a public type used by ssokit APIs.
//
// Manager instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when the configuration is structurally
// invalid: no signing secret for the active environment, empty issuer or
// audience, or an out-of-range leeway.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience required")
	}
	if cfg.Environment == "" {
		return nil, errors.New("environment required")
	}
	if len(cfg.Secrets[cfg.Environment]) == 0 {
		return nil, fmt.Errorf("no signing secret for environment %q", cfg.Environment)
	}
	for env, secret := range cfg.Secrets {
		if strings.TrimSpace(env) == "" {
			return nil, errors.New("secret map contains empty environment name")
		}
		if len(secret) == 0 {
			return nil, fmt.Errorf("empty signing secret for environment %q", env)
		}
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 8 * time.Hour
	}
	if cfg.DefaultTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RoleTokenTTL <= 0 {
		cfg.RoleTokenTTL = 2 * time.Hour
	}

	now := cfg.TimeFunc
	if now == nil {
		now = time.Now
	}

	return &Manager{config: cfg, now: now}, nil
}

// Generate describes the generate operation and its observable behavior.
//
// Generate derives permissions and allowed_games from the identity's role and
// game grants, never from the caller, and signs the result with the key
// material scoped to the selected environment. It fails with
// [ErrInvalidIdentity] when id, email, or role is missing or unrecognized.
func (m *Manager) Generate(identity *session.Identity, opts GenerateOptions) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("%w: nil identity", ErrInvalidIdentity)
	}
	if identity.ID == "" || identity.Email == "" {
		return "", fmt.Errorf("%w: id and email required", ErrInvalidIdentity)
	}
	if !identity.Role.Known() {
		return "", fmt.Errorf("%w: unrecognized role %q", ErrInvalidIdentity, identity.Role)
	}

	env := opts.Environment
	if env == "" {
		env = m.config.Environment
	}
	secret, ok := m.config.Secrets[env]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, env)
	}

	ttl := m.config.DefaultTTL
	if opts.ExpirationHours != 0 {
		ttl = time.Duration(opts.ExpirationHours) * time.Hour
	}

	now := m.now()
	claims := Claims{
		UserID:           identity.ID,
		Email:            identity.Email,
		FullName:         identity.FullName,
		Role:             identity.Role,
		Games:            identity.Games,
		OrganizationType: identity.OrganizationType,
		Permissions:      role.Derive(identity.Role),
		AllowedGames:     role.AllowedGames(identity.Games),
		TokenVersion:     TokenSchemaVersion,
		IssueContext:     opts.IssueContext,
		Custom:           opts.CustomClaims,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = env

	return token.SignedString(secret)
}

// GenerateForRole describes the generateforrole operation and its observable behavior.
//
// GenerateForRole issues a token carrying the same identity with the role
// replaced by targetRole, tagged through issue_context so downstream auditing
// can tell a downgraded token from a portal login. Reissue is only permitted
// downward or sideways in the hierarchy; an upward request fails with
// [ErrInsufficientPermissions].
func (m *Manager) GenerateForRole(identity *session.Identity, targetRole role.Role) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("%w: nil identity", ErrInvalidIdentity)
	}
	if !role.HasPermission(identity.Role, targetRole) {
		return "", fmt.Errorf("%w: %s cannot issue a %s token", ErrInsufficientPermissions, identity.Role, targetRole)
	}

	scoped := identity.Clone()
	scoped.Role = targetRole

	hours := int(m.config.RoleTokenTTL / time.Hour)
	if hours <= 0 {
		hours = 2
	}

	return m.Generate(scoped, GenerateOptions{
		ExpirationHours: hours,
		IssueContext: map[string]string{
			"original_role": string(identity.Role),
			"target_role":   string(targetRole),
			"purpose":       PurposeRoleToken,
		},
	})
}

// Verify describes the verify operation and its observable behavior.
//
// Verify strips an optional "Bearer " prefix, authenticates the token against
// the environment-scoped key named in its header, and enforces issuer,
// audience, expiry, and schema version. On success it returns the embedded
// claims untouched. All expected failures map onto the package's typed
// errors; Verify never panics on hostile input.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenStr), "Bearer "))
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	if strings.Count(tokenStr, ".") != 2 {
		return nil, fmt.Errorf("%w: token must have three segments", ErrMalformed)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		env, _ := t.Header["kid"].(string)
		if env == "" {
			env = m.config.Environment
		}
		secret, ok := m.config.Secrets[env]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, env)
		}
		return secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.TokenVersion != TokenSchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, claims.TokenVersion, TokenSchemaVersion)
	}

	return claims, nil
}

// classifyParseError maps golang-jwt failures onto the codec's closed
// taxonomy. Signature failures take precedence over claim validation so a
// tampered token is never reported as merely expired.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownEnvironment):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", ErrAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
