package portalauth

import (
	"context"

	"github.com/sbiswal/portalauth/session"
)

// Role is the portal access role carried by identities and sessions.
type Role = session.Role

const (
	RoleEmployee = session.RoleEmployee
	RoleMentor   = session.RoleMentor
	RoleHR       = session.RoleHR
)

// Identity is the authenticated user profile persisted inside the session
// record.
type Identity = session.Identity

// Credentials is a sign-in request. Role selects the directory segment the
// credentials are checked against; the same email may exist under several
// roles with different passwords.
type Credentials struct {
	Email    string
	Password string
	Role     Role
}

// IdentityPatch carries partial profile updates for [Engine.UpdateIdentity].
// Nil fields are left unchanged.
type IdentityPatch struct {
	Name  *string
	Email *string
}

// AuthState is a point-in-time projection of the engine's authentication
// state, safe to hand to rendering code. The zero value is the anonymous
// state.
type AuthState struct {
	Identity      Identity
	Role          Role
	SessionID     string
	Authenticated bool
}

// Directory answers credential checks. Lookup reports found=true only on
// an exact email and password match within the given role. Implementations
// must not distinguish "unknown email" from "wrong password" in their
// results, so the engine cannot be used to enumerate accounts.
type Directory interface {
	Lookup(ctx context.Context, role Role, email, password string) (Identity, bool, error)
}
