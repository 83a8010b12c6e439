package domain

import "strings"

type Role string

const RoleAdmin Role = "ADMIN"

type Roles struct {
	Admin bool `json:"admin"`
}

// Profile is the record stored under users/{uid}.
type Profile struct {
	Email string `json:"email"`
	Roles Roles  `json:"roles"`
}

type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Roles Roles  `json:"roles"`
}

func (u User) IsAdmin() bool { return u.Roles.Admin }

// SortKey orders users by email, falling back to uid when the email is blank.
func (u User) SortKey() string {
	if u.Email != "" {
		return u.Email
	}
	return u.UID
}

// Credential is the record stored under credentials/{uid}.
type Credential struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
