package guard

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/sbiswal/portalauth/session"
)

// routeTableFile is the TOML shape of a route policy:
//
//	login_path     = "/login"
//	public_only    = ["/login", "/signup"]
//	role_redirects = ["/"]
//
//	[landing]
//	employee = "/employee-dashboard"
//
//	[protected]
//	"/employee-dashboard" = ["employee"]
//	"/profile"            = []
type routeTableFile struct {
	LoginPath     string              `toml:"login_path"`
	PublicOnly    []string            `toml:"public_only"`
	RoleRedirects []string            `toml:"role_redirects"`
	Landing       map[string]string   `toml:"landing"`
	Protected     map[string][]string `toml:"protected"`
}

// LoadRouteTable reads a route policy from a TOML file. Role names are
// validated during parsing; building the [Guard] is left to the caller so
// the table can still be inspected or amended first.
func LoadRouteTable(path string) (RouteTable, error) {
	var file routeTableFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return RouteTable{}, fmt.Errorf("route table %s: %w", path, err)
	}
	return file.toTable()
}

func (f routeTableFile) toTable() (RouteTable, error) {
	table := RouteTable{
		LoginPath:     f.LoginPath,
		PublicOnly:    f.PublicOnly,
		RoleRedirects: f.RoleRedirects,
	}

	if len(f.Landing) > 0 {
		table.Landing = make(map[Role]string, len(f.Landing))
		for name, route := range f.Landing {
			role, err := session.ParseRole(name)
			if err != nil {
				return RouteTable{}, fmt.Errorf("landing: %w", err)
			}
			table.Landing[role] = route
		}
	}

	if len(f.Protected) > 0 {
		table.Protected = make(map[string][]Role, len(f.Protected))
		for route, names := range f.Protected {
			var roles []Role
			for _, name := range names {
				role, err := session.ParseRole(name)
				if err != nil {
					return RouteTable{}, fmt.Errorf("protected route %q: %w", route, err)
				}
				roles = append(roles, role)
			}
			table.Protected[route] = roles
		}
	}

	return table, nil
}
