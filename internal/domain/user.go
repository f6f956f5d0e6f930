// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and the parameter types used for
// registration, login and profile maintenance. These types are separate from
// the repository models so that the API never sees password hashes or sql.Null*
// wrappers.
package domain

import (
	"database/sql"
	"net/mail"
	"strings"
	"time"
)

// Role is the coarse permission level of a user.
type Role string

const (
	RoleFarmer     Role = "farmer"
	RoleAdmin      Role = "admin"
	RoleResearcher Role = "researcher"
	RoleStudent    Role = "student"
)

// IsValid returns true if the role is a recognized value.
func (r Role) IsValid() bool {
	switch r {
	case RoleFarmer, RoleAdmin, RoleResearcher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Field length limits shared by validation and the schema.
const (
	MaxNameLength     = 100
	MaxEmailLength    = 255
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores bytes past 72
)

// User represents a registered user of the AgroScan platform.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RegisterParams contains the parameters for user registration.
type RegisterParams struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Password  string `json:"password"` // Raw password, hashed by the service
}

// Normalize trims whitespace, lower-cases the email and defaults the role.
func (p *RegisterParams) Normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = NormalizeEmail(p.Email)
	p.Role = Role(strings.ToLower(strings.TrimSpace(string(p.Role))))
	if p.Role == "" {
		p.Role = RoleFarmer
	}
}

// Validate checks every field and reports all failures at once.
func (p RegisterParams) Validate(op string) error {
	v := NewValidator(op)
	v.Check(p.FirstName != "", "firstName", "First name is required")
	v.Check(len(p.FirstName) <= MaxNameLength, "firstName", "First name must be at most 100 characters")
	v.Check(p.LastName != "", "lastName", "Last name is required")
	v.Check(len(p.LastName) <= MaxNameLength, "lastName", "Last name must be at most 100 characters")
	v.Check(p.Role.IsValid(), "role", "Role must be one of farmer, admin, researcher or student")
	v.Check(p.Email != "", "email", "Email is required")
	v.Check(IsValidEmail(p.Email), "email", "Email address is not valid")
	if msg := PasswordProblem(p.Password); msg != "" {
		v.Check(false, "password", msg)
	}
	return v.Err()
}

// LoginParams contains login credentials.
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// UpdateUserParams carries a partial profile update. Absent fields are kept.
type UpdateUserParams struct {
	FirstName Optional[string] `json:"firstName"`
	LastName  Optional[string] `json:"lastName"`
	Role      Optional[Role]   `json:"role"`
	Email     Optional[string] `json:"email"`
	Password  Optional[string] `json:"password"`
}

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	UserID    int64
	Email     string
	Role      Role
	FirstName string
	LastName  string
}

// IsAdmin returns true if the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail performs a syntactic check of a bare address.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// PasswordProblem returns a user-facing message when the password is not
// acceptable, or "" when it is.
func PasswordProblem(password string) string {
	switch {
	case password == "":
		return "Password is required"
	case len(password) < MinPasswordLength:
		return "Password must be at least 8 characters"
	case len(password) > MaxPasswordLength:
		return "Password must be at most 72 characters"
	}
	return ""
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ToNullInt64 converts an id to sql.NullInt64, treating 0 as absent.
func ToNullInt64(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
