package session

import (
	"time"

	"github.com/google/uuid"
)

// User is the authenticated principal as returned by the backend.
type User struct {
	ID       string `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
	IsActive bool   `json:"is_active,omitempty"`
}

// UserUUID parses the opaque backend id as a UUID.
func (u *User) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(u.ID)
}

// Normalize returns a copy with the role in canonical casing. Call it at the
// boundary, immediately after receiving a User from the backend; nothing past
// that point should see a raw role string.
func (u *User) Normalize() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Role = NormalizeRole(string(c.Role))
	return &c
}

// Snapshot is a point-in-time, read-only copy of the session state. The zero
// Snapshot is the logged-out state with bootstrap already settled.
type Snapshot struct {
	User            *User
	AccessToken     string
	TokenExpiresAt  time.Time
	IsAuthenticated bool
	IsLoadingAuth   bool
}

// Role returns the current role, empty when no user is present.
func (s Snapshot) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
