// Package identity resolves who is calling and what they may do.
// Every operation receives an explicit Identity value; there is no
// ambient session state.
package identity

type Role string

const (
	RoleAnonymous   Role = "anonymous"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// Authenticated reports whether the role belongs to a known contributor.
func (r Role) Authenticated() bool {
	return r == RoleContributor || r == RoleAdmin
}

// Identity is the resolved caller for one unit of work.
type Identity struct {
	UserName    string
	DisplayName string
	Role        Role
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{Role: RoleAnonymous}

func ValidRole(role string) bool {
	switch Role(role) {
	case RoleContributor, RoleAdmin:
		return true
	}
	return false
}
