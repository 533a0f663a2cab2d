package role

// Role defines a public type used by ssokit APIs.
//
// Role values are compared through [Rank] and [HasPermission]; any value
// outside the three known constants ranks as unknown and never passes a
// permission check.
type Role string

const (
	// Host is an exported constant or variable used by the session layer.
	Host Role = "host"
	// OrgAdmin is an exported constant or variable used by the session layer.
	OrgAdmin Role = "org_admin"
	// SuperAdmin is an exported constant or variable used by the session layer.
	SuperAdmin Role = "super_admin"
)

// hierarchy is the total order used for rank comparison. Index = rank.
var hierarchy = [...]Role{Host, OrgAdmin, SuperAdmin}

// Parse describes the parse operation and its observable behavior.
//
// Parse maps an untrusted string onto the closed role set and reports whether
// the value is recognized.
func Parse(s string) (Role, bool) {
	r := Role(s)
	return r, r.Known()
}

// Known reports whether r is one of the three recognized roles.
func (r Role) Known() bool {
	for _, candidate := range hierarchy {
		if r == candidate {
			return true
		}
	}
	return false
}

// Rank returns the position of r in the hierarchy, or -1 when r is not a
// recognized role.
func Rank(r Role) int {
	for i, candidate := range hierarchy {
		if r == candidate {
			return i
		}
	}
	return -1
}

// HasPermission describes the haspermission operation and its observable behavior.
//
// HasPermission is true when userRole ranks at or above requiredRole. Any
// unrecognized role on either side yields false, including the case where
// both operands are the same unrecognized string.
func HasPermission(userRole, requiredRole Role) bool {
	userRank := Rank(userRole)
	requiredRank := Rank(requiredRole)
	if userRank < 0 || requiredRank < 0 {
		return false
	}
	return userRank >= requiredRank
}

// GameGrant defines a public type used by ssokit APIs.
//
// GameGrant instances are issued by the backend alongside the identity and
// treated as immutable by the client.
type GameGrant struct {
	Name            string `json:"name"`
	PermissionLevel string `json:"permission_level,omitempty"`
}

// HasGameAccess reports whether grants contains an entry named game.
// A nil or empty grant list yields false. Access is independent of role rank.
func HasGameAccess(grants []GameGrant, game string) bool {
	if game == "" {
		return false
	}
	for _, grant := range grants {
		if grant.Name == game {
			return true
		}
	}
	return false
}

// AllowedGames returns the grant names in their issued order. Used by the
// claims codec to embed the allowed_games claim.
func AllowedGames(grants []GameGrant) []string {
	if len(grants) == 0 {
		return nil
	}
	names := make([]string, 0, len(grants))
	for _, grant := range grants {
		names = append(names, grant.Name)
	}
	return names
}

// Capabilities defines a public type used by ssokit APIs.
//
// Capabilities is the derived capability snapshot embedded into signed
// claims. It is always computed by [Derive], never accepted from a caller.
type Capabilities struct {
	CanCreateSessions bool `json:"can_create_sessions"`
	CanManageTeams    bool `json:"can_manage_teams"`
	CanViewAnalytics  bool `json:"can_view_analytics"`
	IsAdmin           bool `json:"is_admin"`
}

// Derive computes the capability flags for r. Unknown roles derive the zero
// value: no capabilities.
func Derive(r Role) Capabilities {
	switch r {
	case Host:
		return Capabilities{
			CanCreateSessions: true,
		}
	case OrgAdmin:
		return Capabilities{
			CanCreateSessions: true,
			CanManageTeams:    true,
			CanViewAnalytics:  true,
		}
	case SuperAdmin:
		return Capabilities{
			CanCreateSessions: true,
			CanManageTeams:    true,
			CanViewAnalytics:  true,
			IsAdmin:           true,
		}
	default:
		return Capabilities{}
	}
}
