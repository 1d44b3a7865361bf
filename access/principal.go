package access

import (
	"fmt"
	"strings"
)

// Role is a coarse capability class. There is no finer permission matrix.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole normalizes s into a known [Role].
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Principal is the identity a request acts as. The zero value is anonymous.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Active   bool   `json:"active"`
}

// Anonymous returns the anonymous principal.
func Anonymous() Principal {
	return Principal{}
}

// Authenticated reports whether p is a known, active user.
func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.Active
}

// IsAdmin reports whether p is an authenticated admin.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

// IsStaff reports whether p is an authenticated teacher or admin.
func (p Principal) IsStaff() bool {
	return p.Authenticated() && (p.Role == RoleTeacher || p.Role == RoleAdmin)
}
