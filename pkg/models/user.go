// Package models defines the core data models for the Tiketti helpdesk
// platform.
//
// The models in this package represent the central data structures shared
// across platform services. They are designed for serialization (JSON),
// database persistence, and cross-service transport.
//
// The [User] type is the persisted account record that a request principal
// resolves to; its [Role] drives every authorization decision. The [Ticket]
// type is the helpdesk case record whose lifecycle status, creator, and
// assignee the authorization evaluator reads to decide access.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents a user's platform role. Roles form a strict capability
// ordering: USER < SUPPORT < ADMIN. ADMIN is a universal override for
// every authorization rule except the comment lock on resolved and closed
// tickets.
type Role string

const (
	// RoleUser is the default role for end users filing tickets. Users may
	// act only on tickets they created.
	RoleUser Role = "USER"

	// RoleSupport is the role for helpdesk handlers. Support staff may read
	// any ticket, but may mutate an assigned ticket only when they are its
	// assignee.
	RoleSupport Role = "SUPPORT"

	// RoleAdmin is the administrative role. Admins pass every role,
	// ownership, and assignment check.
	RoleAdmin Role = "ADMIN"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	default:
		return false
	}
}

// User represents a persisted user account in the Tiketti platform. Request
// principals resolve to a User by lowercase-normalized email; the User's Role
// is the authority for every authorization decision.
type User struct {
	// ID is the unique identifier for this user (UUID v4).
	ID string `json:"id" db:"id"`

	// Email is the user's email address, lowercase-normalized and unique.
	// This is the join key between token identities and user records.
	Email string `json:"email" db:"email"`

	// DisplayName is the human-readable name shown in the UI.
	DisplayName string `json:"display_name" db:"display_name"`

	// Role is the user's platform role. See [Role] for valid values.
	Role Role `json:"role" db:"role"`

	// ExternalSubjectID is the stable identifier the identity provider
	// assigned to this user, recorded on first sign-in. Empty for accounts
	// provisioned before federated sign-in.
	ExternalSubjectID string `json:"external_subject_id,omitempty" db:"external_subject_id"`

	// CreatedAt is the UTC timestamp when the user record was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the UTC timestamp when the user record was last modified.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser creates a new User record with a generated UUID, lowercase-
// normalized email, and UTC timestamps.
//
// Returns an error if email or displayName is empty, or if role is not a
// recognized value.
func NewUser(email, displayName string, role Role) (*User, error) {
	if email == "" {
		return nil, errors.New("models: user email must not be empty")
	}
	if displayName == "" {
		return nil, errors.New("models: user displayName must not be empty")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("models: invalid user role %q", role)
	}

	now := time.Now().UTC()
	return &User{
		ID:          uuid.New().String(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks that all required fields are present and that the role is
// a recognized value. Returns the first validation error encountered, or nil
// if the user is valid.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("models: user ID is required")
	}
	if u.Email == "" {
		return errors.New("models: user email is required")
	}
	if u.Email != strings.ToLower(u.Email) {
		return fmt.Errorf("models: user email %q is not lowercase-normalized", u.Email)
	}
	if u.DisplayName == "" {
		return errors.New("models: user display name is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("models: invalid user role %q", u.Role)
	}
	if u.CreatedAt.IsZero() {
		return errors.New("models: user created_at is required")
	}
	if u.UpdatedAt.IsZero() {
		return errors.New("models: user updated_at is required")
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsSupport reports whether the user holds the support role. Admins are not
// support staff; use [User.IsAdmin] for the universal override.
func (u *User) IsSupport() bool {
	return u.Role == RoleSupport
}
