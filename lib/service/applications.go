package service

import (
	"context"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
)

// ApplicationInput is the content of a new application.
type ApplicationInput struct {
	Type         model.ApplicationType
	EnglishLevel string
	Experience   string
	Reason       string
	Attachments  []string
}

// ApplicationPatch lists application fields to change. Nil fields are kept.
type ApplicationPatch struct {
	Status          *model.ApplicationStatus
	Type            *model.ApplicationType
	EnglishLevel    *string
	Experience      *string
	Reason          *string
	Attachments     *[]string
	TeacherCallsign *string
	TeacherComment  *string
}

// Applications manages rating applications.
type Applications struct {
	records[*model.Application]
}

// Create files a pending application for callsign.
func (a *Applications) Create(ctx context.Context, callsign string, in ApplicationInput) (*model.Application, error) {
	if err := required(field("type", string(in.Type)), field("reason", in.Reason)); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown application type %q", in.Type)
	}
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := a.requireProfile(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := a.timestamp()
	return a.create(ctx, owner, &model.Application{
		ID:           a.newID(),
		UserID:       p.ID,
		Status:       model.ApplicationPending,
		Type:         in.Type,
		EnglishLevel: in.EnglishLevel,
		Experience:   in.Experience,
		Reason:       in.Reason,
		Attachments:  append([]string{}, in.Attachments...),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Update applies patch. Reaching approved or rejected stamps the matching
// timestamp the first time.
func (a *Applications) Update(ctx context.Context, id string, patch ApplicationPatch) (*model.Application, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown application status %q", *patch.Status)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown application type %q", *patch.Type)
	}
	return a.modify(ctx, id, func(app *model.Application, now time.Time) error {
		setIf(&app.Type, patch.Type)
		setIf(&app.EnglishLevel, patch.EnglishLevel)
		setIf(&app.Experience, patch.Experience)
		setIf(&app.Reason, patch.Reason)
		setIf(&app.TeacherCallsign, patch.TeacherCallsign)
		setIf(&app.TeacherComment, patch.TeacherComment)
		if patch.Attachments != nil {
			app.Attachments = append([]string{}, (*patch.Attachments)...)
		}
		if patch.Status != nil {
			app.Transition(*patch.Status, now)
		}
		app.UpdatedAt = now
		return nil
	})
}

// Delete rejects the application. The document is kept.
func (a *Applications) Delete(ctx context.Context, id string) error {
	_, err := a.modify(ctx, id, func(app *model.Application, now time.Time) error {
		app.Transition(model.ApplicationRejected, now)
		app.UpdatedAt = now
		return nil
	})
	return err
}
