package service

import (
	"context"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
)

// ActivityInput is the content of a new activity request.
type ActivityInput struct {
	ControlRoom      string
	ActivityCallsign string
	PreferredDate    string
	PreferredTime    string
	Notes            string
}

// ActivityPatch lists activity fields to change. Nil fields are kept.
type ActivityPatch struct {
	Status           *model.ScheduleStatus
	ControlRoom      *string
	ActivityCallsign *string
	PreferredDate    *string
	PreferredTime    *string
	ActivityDate     *string
	ActivityTime     *string
	TeacherCallsign  *string
	Result           *model.Result
	Permission       *string
	Comment          *string
	Notes            *string
}

// Activities manages supervised controlling sessions.
type Activities struct {
	records[*model.Activity]
}

// Create requests an activity for callsign.
func (a *Activities) Create(ctx context.Context, callsign string, in ActivityInput) (*model.Activity, error) {
	if err := required(field("controlRoom", in.ControlRoom), field("preferredDate", in.PreferredDate)); err != nil {
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

	now := a.timestamp()
	return a.create(ctx, owner, &model.Activity{
		ID:               a.newID(),
		UserID:           p.ID,
		Status:           model.SchedulePending,
		ControlRoom:      in.ControlRoom,
		ActivityCallsign: in.ActivityCallsign,
		PreferredDate:    in.PreferredDate,
		PreferredTime:    in.PreferredTime,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// Update applies patch. Reaching confirmed or completed stamps the matching
// timestamp the first time.
func (a *Activities) Update(ctx context.Context, id string, patch ActivityPatch) (*model.Activity, error) {
	if err := validateSchedulePatch(patch.Status, patch.Result); err != nil {
		return nil, err
	}
	return a.modify(ctx, id, func(act *model.Activity, now time.Time) error {
		setIf(&act.ControlRoom, patch.ControlRoom)
		setIf(&act.ActivityCallsign, patch.ActivityCallsign)
		setIf(&act.PreferredDate, patch.PreferredDate)
		setIf(&act.PreferredTime, patch.PreferredTime)
		setIf(&act.ActivityDate, patch.ActivityDate)
		setIf(&act.ActivityTime, patch.ActivityTime)
		setIf(&act.TeacherCallsign, patch.TeacherCallsign)
		setIf(&act.Result, patch.Result)
		setIf(&act.Permission, patch.Permission)
		setIf(&act.Comment, patch.Comment)
		setIf(&act.Notes, patch.Notes)
		if patch.Status != nil {
			act.Transition(*patch.Status, now)
		}
		act.UpdatedAt = now
		return nil
	})
}

// Delete closes the activity as completed and failed. The document is kept.
func (a *Activities) Delete(ctx context.Context, id string) error {
	_, err := a.modify(ctx, id, func(act *model.Activity, now time.Time) error {
		act.Transition(model.ScheduleCompleted, now)
		act.Result = model.ResultFail
		act.UpdatedAt = now
		return nil
	})
	return err
}
