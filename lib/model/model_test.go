package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStripsOwnerAnnotation(t *testing.T) {
	exam := &Exam{ID: "e1", Status: SchedulePending, OwnerKey: "7700"}

	data, err := Encode(exam)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "callsign")
	assert.Equal(t, "7700", exam.OwnerKey, "encode must not mutate the caller's value")

	decoded, err := Decode(KindExam, data)
	require.NoError(t, err)
	assert.Equal(t, "e1", decoded.DocID())
	assert.Equal(t, "", decoded.Owner())
}

func TestProfileKeepsCallsign(t *testing.T) {
	p := &Profile{ID: "p1", Callsign: "bav123", Secret: "s"}

	data, err := Encode(p)
	require.NoError(t, err)

	decoded, err := Decode(KindProfile, data)
	require.NoError(t, err)
	assert.Equal(t, "BAV123", decoded.Owner())
	assert.Equal(t, "s", decoded.(*Profile).Secret)
	assert.Empty(t, p.WithoutSecret().Secret)
	assert.Equal(t, "s", p.Secret)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode(Kind("bogus"), []byte("{}"))
	assert.Error(t, err)
}

func TestApplicationTransitionStampsOnce(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	a := &Application{Status: ApplicationPending}
	a.Transition(ApplicationApproved, first)
	require.NotNil(t, a.ApprovedAt)
	assert.Equal(t, first, *a.ApprovedAt)

	// same status again: no restamp
	a.Transition(ApplicationApproved, later)
	assert.Equal(t, first, *a.ApprovedAt)

	// leave and come back: first stamp wins
	a.Transition(ApplicationPending, later)
	a.Transition(ApplicationApproved, later)
	assert.Equal(t, first, *a.ApprovedAt)
	assert.Nil(t, a.RejectedAt)
}

func TestScheduleTransition(t *testing.T) {
	now := time.Now()
	e := &Exam{Status: SchedulePending}
	e.Transition(ScheduleConfirmed, now)
	e.Transition(ScheduleCompleted, now.Add(time.Minute))

	require.NotNil(t, e.ConfirmedAt)
	require.NotNil(t, e.CompletedAt)
	assert.True(t, e.CompletedAt.After(*e.ConfirmedAt))

	a := &Activity{Status: SchedulePending}
	a.Transition(SchedulePending, now)
	assert.Nil(t, a.ConfirmedAt)
	assert.Nil(t, a.CompletedAt)
}

func TestCloneIsDeep(t *testing.T) {
	score := 90
	e := &Exam{ID: "e", Score: &score}
	c := e.Clone().(*Exam)
	*c.Score = 10
	assert.Equal(t, 90, *e.Score)

	att := &Attachment{Content: []byte("abc")}
	ac := att.Clone().(*Attachment)
	ac.Content[0] = 'X'
	assert.Equal(t, "abc", string(att.Content))
}

func TestOwnerKeyHelpers(t *testing.T) {
	assert.Equal(t, "CCA1234", NormalizeOwnerKey("  cca1234 "))
	assert.NoError(t, ValidateOwnerKey("CCA1234"))
	assert.Error(t, ValidateOwnerKey(""))
	assert.Error(t, ValidateOwnerKey("A/B"))
	assert.Error(t, ValidateOwnerKey("A:B"))
	assert.Error(t, ValidateOwnerKey(".."))

	k, err := ParseKind("Exam")
	require.NoError(t, err)
	assert.Equal(t, KindExam, k)
	_, err = ParseKind("nope")
	assert.Error(t, err)
}

func TestViolationDocument(t *testing.T) {
	k, err := ParseKind("violation")
	require.NoError(t, err)
	assert.Equal(t, KindViolation, k)
	assert.True(t, k.IsRecord())

	doc, err := New(KindViolation)
	require.NoError(t, err)
	_, ok := doc.(*Violation)
	assert.True(t, ok)

	sev, err := ParseSeverity("severe")
	require.NoError(t, err)
	assert.Equal(t, SeveritySevere, sev)
	_, err = ParseSeverity("critical")
	assert.Error(t, err)
}
