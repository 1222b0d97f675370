package model

import (
	"fmt"
	"time"
)

// Role of a principal.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleStaff     Role = "staff"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleApplicant || r == RoleStaff || r == RoleAdmin
}

// ParseRole accepts the role names plus "teacher" as an alias of staff.
func ParseRole(s string) (Role, error) {
	switch s {
	case "applicant":
		return RoleApplicant, nil
	case "staff", "teacher":
		return RoleStaff, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ProfileStatus is the account state of a principal. Only active principals
// can authenticate.
type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
	ProfilePending  ProfileStatus = "pending"
)

// Valid reports whether s is a known profile status.
func (s ProfileStatus) Valid() bool {
	return s == ProfileActive || s == ProfileInactive || s == ProfilePending
}

// Profile is the single identity document of an owner.
type Profile struct {
	ID          string        `json:"id"`
	Callsign    string        `json:"callsign"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	QQ          string        `json:"qq,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Secret      string        `json:"secret,omitempty"`
	Role        Role          `json:"role"`
	Status      ProfileStatus `json:"status"`
	Permissions []string      `json:"permissions,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	LastLogin   *time.Time    `json:"lastLogin,omitempty"`
}

func (p *Profile) Kind() Kind    { return KindProfile }
func (p *Profile) DocID() string { return p.ID }

// Owner of a profile is its own normalized callsign.
func (p *Profile) Owner() string { return NormalizeOwnerKey(p.Callsign) }

// SetOwner is a no-op for profiles: the callsign is part of the document.
func (p *Profile) SetOwner(string) {}

func (p *Profile) Clone() Document {
	c := *p
	c.Permissions = cloneStrings(p.Permissions)
	c.LastLogin = cloneTime(p.LastLogin)
	return &c
}

func (p *Profile) sealed() {}

// WithoutSecret returns a copy safe to hand out to callers.
func (p *Profile) WithoutSecret() *Profile {
	c := p.Clone().(*Profile)
	c.Secret = ""
	return c
}
