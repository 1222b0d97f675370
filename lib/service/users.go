package service

import (
	"context"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
)

// ProfileInput is the content of a new profile.
type ProfileInput struct {
	Callsign    string
	Name        string
	Email       string
	QQ          string
	Phone       string
	Secret      string
	Role        model.Role          // defaults to applicant
	Status      model.ProfileStatus // defaults to active
	Permissions []string
}

// ProfilePatch lists profile fields to change. Nil fields are kept.
type ProfilePatch struct {
	Name        *string
	Email       *string
	QQ          *string
	Phone       *string
	Status      *model.ProfileStatus
	Permissions *[]string
}

// Users manages profiles. Profiles handed out never carry the secret.
type Users struct {
	base
}

func (u *Users) GetAll(ctx context.Context) ([]*model.Profile, error) {
	docs, err := u.store.ListAllEntities(ctx, model.KindProfile)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Profile, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.(*model.Profile).WithoutSecret())
	}
	return out, nil
}

// GetByOwner returns the profile of callsign or nil.
func (u *Users) GetByOwner(ctx context.Context, callsign string) (*model.Profile, error) {
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := u.profile(ctx, owner)
	if err != nil || p == nil {
		return nil, err
	}
	return p.WithoutSecret(), nil
}

// GetByID returns the profile with the given id or nil.
func (u *Users) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	owner, err := u.store.FindOwner(ctx, model.KindProfile, id)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := u.profile(ctx, owner)
	if err != nil || p == nil || p.ID != id {
		return nil, err
	}
	return p.WithoutSecret(), nil
}

// Create stores a new profile. A second profile for the same callsign
// fails with RetCConflict.
func (u *Users) Create(ctx context.Context, in ProfileInput) (*model.Profile, error) {
	if err := required(field("callsign", in.Callsign), field("name", in.Name), field("secret", in.Secret)); err != nil {
		return nil, err
	}
	owner, err := ownerKey(in.Callsign)
	if err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleApplicant
	}
	if in.Status == "" {
		in.Status = model.ProfileActive
	}
	if !in.Role.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown role %q", in.Role)
	}
	if !in.Status.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown status %q", in.Status)
	}

	now := u.timestamp()
	p := &model.Profile{
		ID:          u.newID(),
		Callsign:    owner,
		Name:        in.Name,
		Email:       in.Email,
		QQ:          in.QQ,
		Phone:       in.Phone,
		Secret:      in.Secret,
		Role:        in.Role,
		Status:      in.Status,
		Permissions: append([]string{}, in.Permissions...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.store.CreateEntity(ctx, owner, p); err != nil {
		if store.IsConflict(err) {
			return nil, store.WrapError(store.RetCConflict, err, "callsign %s is already registered", owner)
		}
		return nil, err
	}
	Logger.Infof("created %s account %s", p.Role, owner)
	return p.WithoutSecret(), nil
}

// Update applies patch to the profile of callsign.
func (u *Users) Update(ctx context.Context, callsign string, patch ProfilePatch) (*model.Profile, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown status %q", *patch.Status)
	}
	return u.modify(ctx, callsign, func(p *model.Profile) error {
		setIf(&p.Name, patch.Name)
		setIf(&p.Email, patch.Email)
		setIf(&p.QQ, patch.QQ)
		setIf(&p.Phone, patch.Phone)
		setIf(&p.Status, patch.Status)
		if patch.Permissions != nil {
			p.Permissions = append([]string{}, (*patch.Permissions)...)
		}
		return nil
	})
}

func (u *Users) UpdateRole(ctx context.Context, callsign string, role model.Role) (*model.Profile, error) {
	if !role.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown role %q", role)
	}
	return u.modify(ctx, callsign, func(p *model.Profile) error {
		p.Role = role
		return nil
	})
}

// ChangeSecret replaces the secret after checking the current one.
func (u *Users) ChangeSecret(ctx context.Context, callsign, current, next string) error {
	if err := required(field("new secret", next)); err != nil {
		return err
	}
	_, err := u.modify(ctx, callsign, func(p *model.Profile) error {
		if p.Secret != current {
			return store.NewError(store.RetCValidationFailed, "current secret does not match")
		}
		p.Secret = next
		return nil
	})
	return err
}

// Delete removes the user together with all their documents.
func (u *Users) Delete(ctx context.Context, callsign string) error {
	owner, err := ownerKey(callsign)
	if err != nil {
		return err
	}
	if _, err := u.requireProfile(ctx, owner); err != nil {
		return err
	}
	if err := u.store.DeleteOwnerPartition(ctx, owner); err != nil {
		return err
	}
	Logger.Infof("deleted account %s", owner)
	return nil
}

// Authenticate returns the profile of callsign if secret matches and the
// account is active, nil otherwise. A successful call stamps lastLogin.
func (u *Users) Authenticate(ctx context.Context, callsign, secret string) (*model.Profile, error) {
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, nil
	}
	p, err := u.profile(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !accepts(p, secret) {
		Logger.Debugf("authentication of %s rejected", owner)
		return nil, nil
	}

	// the secret or status may change between the read and the update
	doc, err := u.store.UpdateEntity(ctx, owner, model.KindProfile, "", func(doc model.Document) error {
		p := doc.(*model.Profile)
		if !accepts(p, secret) {
			return errRejected
		}
		now := u.timestamp()
		p.LastLogin = &now
		p.UpdatedAt = now
		return nil
	})
	if err == errRejected || store.IsNotFound(err) {
		Logger.Debugf("authentication of %s rejected", owner)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.(*model.Profile).WithoutSecret(), nil
}

var errRejected = store.NewError(store.RetCValidationFailed, "authentication rejected")

func accepts(p *model.Profile, secret string) bool {
	return p != nil && p.Secret == secret && p.Status == model.ProfileActive
}

// modify applies fn to the stored profile of callsign under the owner's
// lock and stamps updatedAt.
func (u *Users) modify(ctx context.Context, callsign string, fn func(p *model.Profile) error) (*model.Profile, error) {
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	doc, err := u.store.UpdateEntity(ctx, owner, model.KindProfile, "", func(doc model.Document) error {
		p := doc.(*model.Profile)
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = u.timestamp()
		return nil
	})
	if store.IsNotFound(err) {
		return nil, store.WrapError(store.RetCNotFound, err, "user %s does not exist", owner)
	}
	if err != nil {
		return nil, err
	}
	return doc.(*model.Profile).WithoutSecret(), nil
}
