package service

import (
	"context"
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   Report
		want Summary
	}{
		{
			name: "no events",
			want: Summary{Reliability: 50, ActivityLevel: 0, SuccessRate: 50, OverallScore: 35},
		},
		{
			name: "mixed",
			in: Report{
				Applications: ApplicationStats{Total: 2, Approved: 1, Pending: 1},
				Exams:        OutcomeStats{Total: 2, Passed: 1, Failed: 1},
				Activities:   OutcomeStats{Total: 2, Passed: 1, Pending: 1},
			},
			// reliability 4/6 = 67, activity 60, success 2/3 = 67
			want: Summary{Reliability: 67, ActivityLevel: 60, SuccessRate: 67, OverallScore: 65},
		},
		{
			name: "violations",
			in: Report{
				Exams:      OutcomeStats{Total: 6, Passed: 6},
				Activities: OutcomeStats{Total: 6, Passed: 6},
				Violations: ViolationStats{Total: 2, Minor: 1, Moderate: 1},
			},
			want: Summary{Reliability: 100, ActivityLevel: 100, SuccessRate: 100, ViolationImpact: 20, OverallScore: 80},
		},
		{
			name: "busy and perfect",
			in: Report{
				Exams:      OutcomeStats{Total: 6, Passed: 6},
				Activities: OutcomeStats{Total: 6, Passed: 6},
			},
			want: Summary{Reliability: 100, ActivityLevel: 100, SuccessRate: 100, OverallScore: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarize(&tt.in))
		})
	}
}

func TestCreditReport(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	registerApplicant(t, svc, "7700", "pw")

	app, err := svc.Applications.Create(ctx, "7700", ApplicationInput{Type: model.TypeS1, Reason: "r"})
	require.NoError(t, err)
	approved := model.ApplicationApproved
	_, err = svc.Applications.Update(ctx, app.ID, ApplicationPatch{Status: &approved})
	require.NoError(t, err)

	exam, err := svc.Exams.Create(ctx, "7700", ExamInput{ExamType: model.ExamTheory, PreferredDate: "d"})
	require.NoError(t, err)
	completed, pass := model.ScheduleCompleted, model.ResultPass
	_, err = svc.Exams.Update(ctx, exam.ID, ExamPatch{Status: &completed, Result: &pass})
	require.NoError(t, err)

	_, err = svc.Activities.Create(ctx, "7700", ActivityInput{ControlRoom: "ZSSS_DEL", PreferredDate: "d"})
	require.NoError(t, err)

	r, err := svc.Credit.Report(ctx, "7700")
	require.NoError(t, err)
	assert.Equal(t, "7700", r.User.Callsign)
	assert.Equal(t, 1, r.Applications.Approved)
	assert.Equal(t, 1, r.Exams.Passed)
	assert.Equal(t, 0, r.Exams.Pending)
	assert.Equal(t, 1, r.Activities.Pending)
	require.Len(t, r.Applications.Records, 1)
	assert.Equal(t, "approved", r.Applications.Records[0].Result)
	// 2 of 3 decided, 3 events, 1 of 1 passed
	assert.Equal(t, Summary{Reliability: 67, ActivityLevel: 30, SuccessRate: 100, OverallScore: 66}, r.Summary)
}

func TestCreditReportDeductsViolations(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	registerApplicant(t, svc, "7700", "pw")
	_, err := svc.Accounts.CreateStaff(ctx, "T001", "Teacher", "pw")
	require.NoError(t, err)

	for _, sev := range []model.Severity{model.SeverityMinor, model.SeverityMinor, model.SeveritySevere} {
		_, err := svc.Violations.Add(ctx, "7700", ViolationInput{Title: "t", Severity: sev}, "T001")
		require.NoError(t, err)
	}

	r, err := svc.Credit.Report(ctx, "7700")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Violations.Total)
	assert.Equal(t, 2, r.Violations.Minor)
	assert.Equal(t, 0, r.Violations.Moderate)
	assert.Equal(t, 1, r.Violations.Severe)
	require.Len(t, r.Violations.Records, 3)
	assert.Equal(t, "violation", r.Violations.Records[0].Type)
	// no events score 35, minus 5+5+30
	assert.Equal(t, Summary{Reliability: 50, ActivityLevel: 0, SuccessRate: 50, ViolationImpact: 40, OverallScore: 0}, r.Summary)
}

func TestCreditReportExcludesStaff(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()

	_, err := svc.Accounts.CreateStaff(ctx, "T001", "Teacher", "pw")
	require.NoError(t, err)
	registerApplicant(t, svc, "7701", "pw")
	registerApplicant(t, svc, "7700", "pw")

	_, err = svc.Credit.Report(ctx, "T001")
	assert.True(t, store.IsValidationFailed(err))
	_, err = svc.Credit.Report(ctx, "9999")
	assert.True(t, store.IsNotFound(err))

	reports, err := svc.Credit.AllReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "7700", reports[0].User.Callsign)
	assert.Equal(t, "7701", reports[1].User.Callsign)
}
