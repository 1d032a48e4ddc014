// Package guard decides whether a navigation target may render for the
// current authentication state, and where to send the user when it may
// not. It is pure routing policy: no storage, no I/O, safe for concurrent
// use once built.
package guard

import (
	"fmt"
	"sort"

	"github.com/sbiswal/portalauth/session"
)

// Role mirrors the engine's role type.
type Role = session.Role

// RouteTable declares the portal's routing policy.
type RouteTable struct {
	// LoginPath receives anonymous users bounced off protected routes.
	LoginPath string
	// Landing maps each role to its home route, the target when an
	// authenticated user hits a public-only route or a route their role
	// may not see.
	Landing map[Role]string
	// Protected maps a route to the roles allowed on it. A nil or empty
	// role list admits any authenticated user.
	Protected map[string][]Role
	// PublicOnly lists routes that only render for anonymous users, such
	// as the sign-in and sign-up pages.
	PublicOnly []string
	// RoleRedirects lists routes that never render: authenticated users
	// are forwarded to their landing route, anonymous users to the login
	// path. The portal root behaves this way.
	RoleRedirects []string
}

// Decision is the outcome of [Guard.Decide]. Exactly one of Allow or a
// non-empty Redirect is meaningful.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard evaluates a [RouteTable].
type Guard struct {
	loginPath  string
	landing    map[Role]string
	protected  map[string][]Role // route -> allowed roles, nil = any
	publicOnly map[string]bool
	redirects  map[string]bool
}

// New validates the table and builds a Guard. Every landing route and the
// login path must resolve, and protected routes must name known roles.
func New(table RouteTable) (*Guard, error) {
	if table.LoginPath == "" {
		return nil, fmt.Errorf("login path required")
	}
	for role, path := range table.Landing {
		if !role.Valid() {
			return nil, fmt.Errorf("landing for unknown role %q", string(role))
		}
		if path == "" {
			return nil, fmt.Errorf("empty landing route for role %q", string(role))
		}
	}

	protected := make(map[string][]Role, len(table.Protected))
	for route, roles := range table.Protected {
		for _, role := range roles {
			if !role.Valid() {
				return nil, fmt.Errorf("route %q protected by unknown role %q", route, string(role))
			}
		}
		sorted := append([]Role(nil), roles...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		protected[route] = sorted
	}

	publicOnly := make(map[string]bool, len(table.PublicOnly))
	for _, route := range table.PublicOnly {
		publicOnly[route] = true
	}
	redirects := make(map[string]bool, len(table.RoleRedirects))
	for _, route := range table.RoleRedirects {
		redirects[route] = true
	}

	return &Guard{
		loginPath:  table.LoginPath,
		landing:    table.Landing,
		protected:  protected,
		publicOnly: publicOnly,
		redirects:  redirects,
	}, nil
}

// Decide resolves one navigation. The precedence order is: role-redirect
// routes always forward (landing or login), public-only routes bounce
// authenticated users to their landing, protected routes bounce anonymous
// users to the login path, role-mismatched users go to their own landing,
// and everything else renders.
func (g *Guard) Decide(authenticated bool, role Role, path string) Decision {
	if g.redirects[path] {
		if authenticated {
			return Decision{Redirect: g.landingFor(role)}
		}
		return Decision{Redirect: g.loginPath}
	}

	if g.publicOnly[path] {
		if authenticated {
			return Decision{Redirect: g.landingFor(role)}
		}
		return Decision{Allow: true}
	}

	allowed, isProtected := g.protected[path]
	if !isProtected {
		return Decision{Allow: true}
	}
	if !authenticated {
		return Decision{Redirect: g.loginPath}
	}
	if len(allowed) == 0 {
		return Decision{Allow: true}
	}
	for _, r := range allowed {
		if r == role {
			return Decision{Allow: true}
		}
	}
	return Decision{Redirect: g.landingFor(role)}
}

// LandingFor returns the post-sign-in destination for a role, falling
// back to the login path when the role has no landing route.
func (g *Guard) LandingFor(role Role) string {
	return g.landingFor(role)
}

func (g *Guard) landingFor(role Role) string {
	if path, ok := g.landing[role]; ok {
		return path
	}
	return g.loginPath
}

// DefaultRouteTable is the portal's shipped policy: sign-in and sign-up
// pages, a root that forwards by role, one dashboard per role, and the
// shared feature routes with their role lists.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		LoginPath: "/login",
		Landing: map[Role]string{
			session.RoleEmployee: "/employee-dashboard",
			session.RoleMentor:   "/mentor-dashboard",
			session.RoleHR:       "/hr-dashboard",
		},
		Protected: map[string][]Role{
			"/employee-dashboard": {session.RoleEmployee},
			"/mentor-dashboard":   {session.RoleMentor},
			"/hr-dashboard":       {session.RoleHR},
			"/profile":            {session.RoleEmployee, session.RoleMentor, session.RoleHR},
			"/idp-generator":      {session.RoleEmployee},
			"/activities":         {session.RoleEmployee, session.RoleHR},
			"/mentorship":         {session.RoleMentor, session.RoleEmployee},
			"/reports":            {session.RoleHR},
		},
		PublicOnly:    []string{"/login", "/signup"},
		RoleRedirects: []string{"/"},
	}
}
