// Package directory provides credential directories for the portal
// engine. The [Static] directory answers lookups from an in-memory user
// list, loaded from code or from a TOML file; production deployments
// substitute their own [portalauth.Directory] implementation.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/sbiswal/portalauth"
)

// User is one directory entry. Passwords are compared verbatim; the
// directory holds whatever secret representation the deployment uses and
// treats it as opaque.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     portalauth.Role
}

// Static is an immutable in-memory directory. Safe for concurrent use.
type Static struct {
	users map[portalauth.Role]map[string]User // role -> lowercased email -> user
}

// NewStatic builds a directory from a user list. Emails are normalized to
// lower case; a duplicate email within one role is an error.
func NewStatic(users []User) (*Static, error) {
	byRole := make(map[portalauth.Role]map[string]User)
	for _, u := range users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("user %q: unknown role %q", u.Email, string(u.Role))
		}
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return nil, fmt.Errorf("user %q: email required", u.ID)
		}

		segment := byRole[u.Role]
		if segment == nil {
			segment = make(map[string]User)
			byRole[u.Role] = segment
		}
		if _, exists := segment[email]; exists {
			return nil, fmt.Errorf("duplicate user %q under role %q", email, string(u.Role))
		}
		u.Email = email
		segment[email] = u
	}
	return &Static{users: byRole}, nil
}

// Lookup implements [portalauth.Directory]. It reports found only on an
// exact email and password match within the role segment, and never
// reveals whether the email alone exists.
func (d *Static) Lookup(_ context.Context, role portalauth.Role, email, password string) (portalauth.Identity, bool, error) {
	u, ok := d.users[role][strings.ToLower(strings.TrimSpace(email))]
	if !ok || u.Password != password {
		return portalauth.Identity{}, false, nil
	}
	return portalauth.Identity{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}, true, nil
}

// Len returns the number of directory entries.
func (d *Static) Len() int {
	n := 0
	for _, segment := range d.users {
		n += len(segment)
	}
	return n
}
