package service

import (
	"context"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
)

// ViolationInput is the content of a new violation.
type ViolationInput struct {
	Title       string
	Description string
	Severity    model.Severity
}

// Violations manages misconduct records. Only staff and administrators
// file or remove them, and removal is permanent.
type Violations struct {
	records[*model.Violation]
}

// Add files a violation against callsign on behalf of reporter.
func (v *Violations) Add(ctx context.Context, callsign string, in ViolationInput, reporter string) (*model.Violation, error) {
	if err := required(field("title", in.Title), field("severity", string(in.Severity))); err != nil {
		return nil, err
	}
	if !in.Severity.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown severity %q", in.Severity)
	}
	by, err := v.staff(ctx, reporter)
	if err != nil {
		return nil, err
	}
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := v.requireProfile(ctx, owner)
	if err != nil {
		return nil, err
	}

	doc, err := v.create(ctx, owner, &model.Violation{
		ID:               v.newID(),
		UserID:           p.ID,
		Title:            in.Title,
		Description:      in.Description,
		Severity:         in.Severity,
		Date:             v.timestamp(),
		ReportedBy:       by.Name,
		ReporterCallsign: by.Callsign,
	})
	if err != nil {
		return nil, err
	}
	Logger.Infof("%s filed a %s violation against %s", by.Callsign, in.Severity, owner)
	return doc, nil
}

// Delete removes the violation with id on behalf of actor.
func (v *Violations) Delete(ctx context.Context, id, actor string) error {
	if _, err := v.staff(ctx, actor); err != nil {
		return err
	}
	owner, _, err := v.locate(ctx, id)
	if err != nil {
		return err
	}
	return v.store.DeleteEntity(ctx, owner, model.KindViolation, id)
}

// staff returns the profile of callsign if it is staff or an administrator.
func (v *Violations) staff(ctx context.Context, callsign string) (*model.Profile, error) {
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := v.profile(ctx, owner)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, store.NewError(store.RetCValidationFailed, "reporter %s does not exist", owner)
	}
	if p.Role != model.RoleStaff && p.Role != model.RoleAdmin {
		return nil, store.NewError(store.RetCValidationFailed, "%s is %s, only staff and administrators manage violations", owner, p.Role)
	}
	return p, nil
}
