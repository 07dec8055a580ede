package entity

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the aggregate root for the user domain.
// Password holds a bcrypt hash, never the plain text.
type User struct {
	ID        string
	Email     string
	Password  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicProfile is the user record with credentials stripped, as exposed by
// every API response.
type PublicProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserRef is the lightweight profile embedded in expanded tasks and
// assignment pickers.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Email: u.Email}
}
