package service

import (
	"context"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
)

// AttachmentInput is an uploaded file.
type AttachmentInput struct {
	Name    string
	Type    string
	Content []byte
}

// AttachmentPatch lists attachment metadata to change. Nil fields are kept.
type AttachmentPatch struct {
	Name *string
	Type *string
}

// Attachments manages uploaded files. Unlike other records they are
// deleted for real.
type Attachments struct {
	records[*model.Attachment]
}

// Upload stores a file for callsign.
func (a *Attachments) Upload(ctx context.Context, callsign string, in AttachmentInput) (*model.Attachment, error) {
	if err := required(field("name", in.Name)); err != nil {
		return nil, err
	}
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := a.requireProfile(ctx, owner)
	if err != nil {
		return nil, err
	}

	return a.create(ctx, owner, &model.Attachment{
		ID:         a.newID(),
		UserID:     p.ID,
		Name:       in.Name,
		Type:       in.Type,
		Size:       int64(len(in.Content)),
		Content:    append([]byte{}, in.Content...),
		UploadedAt: a.timestamp(),
	})
}

// Create is Upload.
func (a *Attachments) Create(ctx context.Context, callsign string, in AttachmentInput) (*model.Attachment, error) {
	return a.Upload(ctx, callsign, in)
}

func (a *Attachments) Update(ctx context.Context, id string, patch AttachmentPatch) (*model.Attachment, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, store.NewError(store.RetCValidationFailed, "missing required fields: name")
	}
	return a.modify(ctx, id, func(att *model.Attachment, _ time.Time) error {
		setIf(&att.Name, patch.Name)
		setIf(&att.Type, patch.Type)
		return nil
	})
}

// Delete removes the attachment.
func (a *Attachments) Delete(ctx context.Context, id string) error {
	owner, _, err := a.locate(ctx, id)
	if err != nil {
		return err
	}
	return a.store.DeleteEntity(ctx, owner, model.KindAttachment, id)
}
