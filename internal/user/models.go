package user

import "time"

// Role labels. A user holds a non-empty set of these and gets the union of
// their privileges.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// ValidRole reports whether the given label is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole reports whether the user holds the given role label.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// IsManager reports whether the user holds the MANAGER role.
func (u *User) IsManager() bool {
	return u.HasRole(RoleManager)
}

// IsPureUser reports whether the user holds USER and no elevated roles.
// The assignment rule cares about this distinction: an account holding
// {USER, ADMIN} is not a pure user.
func (u *User) IsPureUser() bool {
	return u.HasRole(RoleUser) && !u.HasRole(RoleManager) && !u.HasRole(RoleAdmin)
}

// CreateUserInput holds the fields required to register a new user.
type CreateUserInput struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}
