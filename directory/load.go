package directory

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/sbiswal/portalauth"
)

// directoryFile is the TOML shape of a user list:
//
//	[[user]]
//	id       = "1"
//	name     = "Alok Hotta"
//	email    = "alok.hotta@company.com"
//	password = "iamalok@123"
//	role     = "employee"
type directoryFile struct {
	Users []userEntry `toml:"user"`
}

type userEntry struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
	Role     string `toml:"role"`
}

// Load reads a [Static] directory from a TOML file.
func Load(path string) (*Static, error) {
	var file directoryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("directory %s: %w", path, err)
	}

	users := make([]User, 0, len(file.Users))
	for _, entry := range file.Users {
		users = append(users, User{
			ID:       entry.ID,
			Name:     entry.Name,
			Email:    entry.Email,
			Password: entry.Password,
			Role:     portalauth.Role(entry.Role),
		})
	}
	return NewStatic(users)
}
