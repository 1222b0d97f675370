package service

import (
	"context"
	"strings"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
)

// BootstrapAdmin is the callsign of the account created on an empty store.
const BootstrapAdmin = "ADMIN"

// Accounts creates accounts with role presets and (re)initializes the system.
type Accounts struct {
	base
	users *Users
}

// Bootstrap creates the administrator account when no profile exists yet.
// It reports whether an account was created.
func (a *Accounts) Bootstrap(ctx context.Context) (bool, error) {
	profiles, err := a.store.ListAllEntities(ctx, model.KindProfile)
	if err != nil {
		return false, err
	}
	if len(profiles) > 0 {
		return false, nil
	}
	Logger.Infof("no accounts found, creating default administrator %s", BootstrapAdmin)
	if _, err := a.CreateAdmin(ctx, BootstrapAdmin, "System Administrator", a.adminSecret); err != nil {
		return false, err
	}
	return true, nil
}

// Reset removes every account and document and bootstraps again.
func (a *Accounts) Reset(ctx context.Context) error {
	if err := a.store.ClearAll(ctx); err != nil {
		return err
	}
	_, err := a.Bootstrap(ctx)
	return err
}

func (a *Accounts) CreateAdmin(ctx context.Context, callsign, name, secret string) (*model.Profile, error) {
	return a.users.Create(ctx, ProfileInput{
		Callsign:    callsign,
		Name:        name,
		Email:       defaultEmail(callsign),
		Secret:      secret,
		Role:        model.RoleAdmin,
		Permissions: []string{"all"},
	})
}

func (a *Accounts) CreateStaff(ctx context.Context, callsign, name, secret string) (*model.Profile, error) {
	return a.users.Create(ctx, ProfileInput{
		Callsign:    callsign,
		Name:        name,
		Email:       defaultEmail(callsign),
		Secret:      secret,
		Role:        model.RoleStaff,
		Permissions: []string{"teach"},
	})
}

// CreateApplicant registers an applicant. Role, status and permissions of
// in are ignored.
func (a *Accounts) CreateApplicant(ctx context.Context, in ProfileInput) (*model.Profile, error) {
	in.Role = model.RoleApplicant
	in.Status = model.ProfileActive
	in.Permissions = nil
	return a.users.Create(ctx, in)
}

func defaultEmail(callsign string) string {
	return strings.ToLower(strings.TrimSpace(callsign)) + "@skydream.com"
}
