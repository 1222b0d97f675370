package service

import (
	"context"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
)

// ExamInput is the content of a new exam request.
type ExamInput struct {
	ExamType      model.ExamType
	PreferredDate string
	PreferredTime string
}

// ExamPatch lists exam fields to change. Nil fields are kept.
type ExamPatch struct {
	Status          *model.ScheduleStatus
	PreferredDate   *string
	PreferredTime   *string
	ExamDate        *string
	ExamTime        *string
	ExamRoom        *string
	TeacherCallsign *string
	Result          *model.Result
	Score           *int
	Comment         *string
}

// Exams manages exam requests and their evaluation.
type Exams struct {
	records[*model.Exam]
}

// Create requests an exam for callsign.
func (e *Exams) Create(ctx context.Context, callsign string, in ExamInput) (*model.Exam, error) {
	if err := required(field("examType", string(in.ExamType)), field("preferredDate", in.PreferredDate)); err != nil {
		return nil, err
	}
	if !in.ExamType.Valid() {
		return nil, store.NewError(store.RetCValidationFailed, "unknown exam type %q", in.ExamType)
	}
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := e.requireProfile(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := e.timestamp()
	return e.create(ctx, owner, &model.Exam{
		ID:            e.newID(),
		UserID:        p.ID,
		Status:        model.SchedulePending,
		ExamType:      in.ExamType,
		PreferredDate: in.PreferredDate,
		PreferredTime: in.PreferredTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// Update applies patch. Reaching confirmed or completed stamps the matching
// timestamp the first time.
func (e *Exams) Update(ctx context.Context, id string, patch ExamPatch) (*model.Exam, error) {
	if err := validateSchedulePatch(patch.Status, patch.Result); err != nil {
		return nil, err
	}
	if patch.Score != nil && (*patch.Score < 0 || *patch.Score > 100) {
		return nil, store.NewError(store.RetCValidationFailed, "score %d out of range 0-100", *patch.Score)
	}
	return e.modify(ctx, id, func(exam *model.Exam, now time.Time) error {
		setIf(&exam.PreferredDate, patch.PreferredDate)
		setIf(&exam.PreferredTime, patch.PreferredTime)
		setIf(&exam.ExamDate, patch.ExamDate)
		setIf(&exam.ExamTime, patch.ExamTime)
		setIf(&exam.ExamRoom, patch.ExamRoom)
		setIf(&exam.TeacherCallsign, patch.TeacherCallsign)
		setIf(&exam.Result, patch.Result)
		setIf(&exam.Comment, patch.Comment)
		if patch.Score != nil {
			score := *patch.Score
			exam.Score = &score
		}
		if patch.Status != nil {
			exam.Transition(*patch.Status, now)
		}
		exam.UpdatedAt = now
		return nil
	})
}

// Delete closes the exam as completed and failed. The document is kept.
func (e *Exams) Delete(ctx context.Context, id string) error {
	_, err := e.modify(ctx, id, func(exam *model.Exam, now time.Time) error {
		exam.Transition(model.ScheduleCompleted, now)
		exam.Result = model.ResultFail
		exam.UpdatedAt = now
		return nil
	})
	return err
}

func validateSchedulePatch(status *model.ScheduleStatus, result *model.Result) error {
	if status != nil && !status.Valid() {
		return store.NewError(store.RetCValidationFailed, "unknown status %q", *status)
	}
	if result != nil && *result != "" && !result.Valid() {
		return store.NewError(store.RetCValidationFailed, "unknown result %q", *result)
	}
	return nil
}
