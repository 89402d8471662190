package models

import (
	"errors"
	"strings"
)

// DefaultRole is assigned when the caller does not name one.
const DefaultRole = "user"

// ErrMissingUsername is returned for an identity without a username.
var ErrMissingUsername = errors.New("username is required")

// User is the caller identity recorded in audit entries. It is supplied by
// the front end, not authenticated.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// NewUser trims the inputs and applies the default role.
func NewUser(username, role string) (User, error) {
	u := User{Username: strings.TrimSpace(username), Role: strings.TrimSpace(role)}
	if u.Username == "" {
		return User{}, ErrMissingUsername
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	return u, nil
}
