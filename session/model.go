package session

import (
	"fmt"
	"time"
)

// Role is the explicit role tag threaded through identities, session
// records, and guard decisions. Only the three portal roles are valid;
// anything else is rejected at the boundary instead of being inferred from
// object shape.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleMentor   Role = "mentor"
	RoleHR       Role = "hr"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleMentor, RoleHR:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts a raw string into a [Role].
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Identity is the authenticated user's id/name/email/role tuple. It is
// immutable once issued except through the engine's explicit
// profile-update path.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Record is the persisted proof of authentication. At most one record is
// live per storage scope; creating a new one fully replaces any prior
// record.
type Record struct {
	SessionID string
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// blob is the wire form stored under the session key: a {user, timestamp,
// expires} object plus a session id for audit correlation. Timestamps are
// Unix milliseconds. Records written without a sid still decode.
type blob struct {
	User      Identity `json:"user"`
	Timestamp int64    `json:"timestamp"`
	Expires   int64    `json:"expires"`
	SessionID string   `json:"sid,omitempty"`
}

func (r Record) toBlob() blob {
	return blob{
		User:      r.Identity,
		Timestamp: r.IssuedAt.UnixMilli(),
		Expires:   r.ExpiresAt.UnixMilli(),
		SessionID: r.SessionID,
	}
}

func (b blob) toRecord() Record {
	return Record{
		SessionID: b.SessionID,
		Identity:  b.User,
		IssuedAt:  time.UnixMilli(b.Timestamp),
		ExpiresAt: time.UnixMilli(b.Expires),
	}
}
