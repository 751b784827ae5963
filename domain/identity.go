// Package domain contains core concepts of the real-time hub.
// This file defines who is on the other end of a connection.
package domain

import "fmt"

type IdentityKind int

const (
	Anonymous IdentityKind = iota
	Customer
	Staff
)

func (k IdentityKind) String() string {
	switch k {
	case Customer:
		return "customer"
	case Staff:
		return "staff"
	default:
		return "anonymous"
	}
}

func (k IdentityKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *IdentityKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "anonymous", "":
		*k = Anonymous
	case "customer":
		*k = Customer
	case "staff":
		*k = Staff
	default:
		return fmt.Errorf("unknown identity kind %q", text)
	}
	return nil
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

// Identity is resolved once at handshake and never changes for the
// lifetime of a connection.
type Identity struct {
	Kind     IdentityKind `json:"kind"`
	UserID   string       `json:"userId,omitempty"`
	Role     Role         `json:"role,omitempty"`
	Username string       `json:"username,omitempty"`
}

func AnonymousIdentity() Identity {
	return Identity{Kind: Anonymous}
}

// NewIdentity maps a back-office role onto an identity kind.
// Any role outside the back-office ones maps to Customer. Tokens carrying
// a role the hub does not know are rejected before they get here.
func NewIdentity(userID string, role Role, username string) Identity {
	if userID == "" {
		return AnonymousIdentity()
	}
	kind := Customer
	switch role {
	case RoleAdmin, RoleStaff, RoleEmployee:
		kind = Staff
	}
	return Identity{Kind: kind, UserID: userID, Role: role, Username: username}
}

func (i Identity) IsStaff() bool { return i.Kind == Staff }

func (i Identity) IsAuthenticated() bool { return i.Kind != Anonymous }

// Owns reports whether the identity is the given owner.
// An empty owner is never owned by anybody.
func (i Identity) Owns(owner string) bool {
	return owner != "" && i.UserID == owner
}

// DisplayName is what other participants see for this identity.
func (i Identity) DisplayName() string {
	switch {
	case i.Username != "":
		return i.Username
	case i.UserID != "":
		return i.UserID
	default:
		return "guest"
	}
}
