package service

import (
	"context"
	"sort"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// Record is one line of a credit report.
type Record struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	Callsign string    `json:"callsign"`
	Type     string    `json:"type"` // application, exam, activity or violation
	Status   string    `json:"status"`
	Result   string    `json:"result,omitempty"`
	Date     time.Time `json:"date"`
}

// ReportUser is the identity part of a credit report.
type ReportUser struct {
	Callsign    string    `json:"callsign"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	QQ          string    `json:"qq,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ApplicationStats struct {
	Total    int      `json:"total"`
	Approved int      `json:"approved"`
	Rejected int      `json:"rejected"`
	Pending  int      `json:"pending"`
	Records  []Record `json:"records"`
}

type OutcomeStats struct {
	Total   int      `json:"total"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Pending int      `json:"pending"` // not completed yet
	Records []Record `json:"records"`
}

type ViolationStats struct {
	Total    int      `json:"total"`
	Minor    int      `json:"minor"`
	Moderate int      `json:"moderate"`
	Severe   int      `json:"severe"`
	Records  []Record `json:"records"`
}

// Summary holds the scores of a report, each between 0 and 100.
type Summary struct {
	Reliability     int `json:"reliability"`
	ActivityLevel   int `json:"activityLevel"`
	SuccessRate     int `json:"successRate"`
	ViolationImpact int `json:"violationImpact"`
	OverallScore    int `json:"overallScore"`
}

// Report is the credit report of one applicant.
type Report struct {
	User         ReportUser       `json:"user"`
	Applications ApplicationStats `json:"applications"`
	Exams        OutcomeStats     `json:"exams"`
	Activities   OutcomeStats     `json:"activities"`
	Violations   ViolationStats   `json:"violations"`
	Summary      Summary          `json:"summary"`
}

// Credit builds credit reports from the records of applicants.
type Credit struct {
	base
}

// Report builds the report of callsign. Staff and administrators have none.
func (c *Credit) Report(ctx context.Context, callsign string) (*Report, error) {
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	p, err := c.requireProfile(ctx, owner)
	if err != nil {
		return nil, err
	}
	if p.Role != model.RoleApplicant {
		return nil, store.NewError(store.RetCValidationFailed, "%s is %s, reports are for applicants only", owner, p.Role)
	}
	return c.build(ctx, p)
}

// AllReports builds the reports of every applicant, ordered by callsign.
func (c *Credit) AllReports(ctx context.Context) ([]*Report, error) {
	docs, err := c.store.ListAllEntities(ctx, model.KindProfile)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[*Report]().WithContext(ctx).WithMaxGoroutines(c.fanout)
	for _, doc := range docs {
		profile := doc.(*model.Profile)
		if profile.Role != model.RoleApplicant {
			continue
		}
		p.Go(func(ctx context.Context) (*Report, error) {
			return c.build(ctx, profile)
		})
	}
	reports, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].User.Callsign < reports[j].User.Callsign
	})
	return reports, nil
}

func (c *Credit) build(ctx context.Context, p *model.Profile) (*Report, error) {
	owner := p.Owner()
	r := &Report{
		User: ReportUser{
			Callsign:    p.Callsign,
			Name:        p.Name,
			Email:       p.Email,
			QQ:          p.QQ,
			Phone:       p.Phone,
			Permissions: append([]string{}, p.Permissions...),
			CreatedAt:   p.CreatedAt,
		},
	}

	apps, err := c.store.ListEntitiesForOwner(ctx, owner, model.KindApplication)
	if err != nil {
		return nil, err
	}
	for _, doc := range apps {
		app := doc.(*model.Application)
		rec := Record{ID: app.ID, UserID: app.UserID, Callsign: owner, Type: "application", Status: string(app.Status), Date: app.CreatedAt}
		r.Applications.Total++
		switch app.Status {
		case model.ApplicationApproved:
			r.Applications.Approved++
			rec.Result = string(app.Status)
		case model.ApplicationRejected:
			r.Applications.Rejected++
			rec.Result = string(app.Status)
		case model.ApplicationPending:
			r.Applications.Pending++
		}
		r.Applications.Records = append(r.Applications.Records, rec)
	}

	exams, err := c.store.ListEntitiesForOwner(ctx, owner, model.KindExam)
	if err != nil {
		return nil, err
	}
	for _, doc := range exams {
		e := doc.(*model.Exam)
		r.Exams.add(Record{ID: e.ID, UserID: e.UserID, Callsign: owner, Type: "exam", Status: string(e.Status), Result: string(e.Result), Date: e.CreatedAt}, e.Status, e.Result)
	}

	acts, err := c.store.ListEntitiesForOwner(ctx, owner, model.KindActivity)
	if err != nil {
		return nil, err
	}
	for _, doc := range acts {
		a := doc.(*model.Activity)
		r.Activities.add(Record{ID: a.ID, UserID: a.UserID, Callsign: owner, Type: "activity", Status: string(a.Status), Result: string(a.Result), Date: a.CreatedAt}, a.Status, a.Result)
	}

	violations, err := c.store.ListEntitiesForOwner(ctx, owner, model.KindViolation)
	if err != nil {
		return nil, err
	}
	for _, doc := range violations {
		v := doc.(*model.Violation)
		r.Violations.Total++
		switch v.Severity {
		case model.SeverityMinor:
			r.Violations.Minor++
		case model.SeverityModerate:
			r.Violations.Moderate++
		case model.SeveritySevere:
			r.Violations.Severe++
		}
		r.Violations.Records = append(r.Violations.Records, Record{ID: v.ID, UserID: v.UserID, Callsign: owner, Type: "violation", Status: v.Title, Result: string(v.Severity), Date: v.Date})
	}

	sortRecords(r.Applications.Records)
	sortRecords(r.Exams.Records)
	sortRecords(r.Activities.Records)
	sortRecords(r.Violations.Records)
	r.Summary = summarize(r)
	return r, nil
}

func (s *OutcomeStats) add(rec Record, status model.ScheduleStatus, result model.Result) {
	s.Total++
	switch result {
	case model.ResultPass:
		s.Passed++
	case model.ResultFail:
		s.Failed++
	}
	if status != model.ScheduleCompleted {
		s.Pending++
	}
	s.Records = append(s.Records, rec)
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].ID < recs[j].ID
	})
}

// neutral is the score of a ratio without any events.
const neutral = 50

// Points deducted from the overall score per violation.
const (
	minorPenalty    = 5
	moderatePenalty = 15
	severePenalty   = 30
)

var hundred = decimal.NewFromInt(100)

// summarize scores a report:
//
//	reliability    decided events / all events
//	activityLevel  all events / 10, capped
//	successRate    passed / (passed + failed) over exams and activities
//	impact         5 per minor, 15 per moderate, 30 per severe violation, capped
//	overall        0.4 reliability + 0.3 activityLevel + 0.3 successRate - impact, at least 0
//
// Ratios without events score neutral.
func summarize(r *Report) Summary {
	total := r.Applications.Total + r.Exams.Total + r.Activities.Total
	decided := r.Applications.Approved + r.Applications.Rejected +
		r.Exams.Passed + r.Exams.Failed + r.Activities.Passed + r.Activities.Failed
	passed := r.Exams.Passed + r.Activities.Passed
	graded := r.Exams.Passed + r.Exams.Failed + r.Activities.Passed + r.Activities.Failed

	s := Summary{
		Reliability:     capped(percent(decided, total)),
		ActivityLevel:   capped(percentOf(decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(10)))),
		SuccessRate:     percent(passed, graded),
		ViolationImpact: capped(minorPenalty*r.Violations.Minor +
			moderatePenalty*r.Violations.Moderate + severePenalty*r.Violations.Severe),
	}

	overall := decimal.NewFromFloat(0.4).Mul(decimal.NewFromInt(int64(s.Reliability))).
		Add(decimal.NewFromFloat(0.3).Mul(decimal.NewFromInt(int64(s.ActivityLevel)))).
		Add(decimal.NewFromFloat(0.3).Mul(decimal.NewFromInt(int64(s.SuccessRate))))
	s.OverallScore = int(overall.Round(0).IntPart()) - s.ViolationImpact
	if s.OverallScore < 0 {
		s.OverallScore = 0
	}
	return s
}

// percent returns part/whole in percent, rounded, or 50 if whole is zero.
func percent(part, whole int) int {
	if whole == 0 {
		return neutral
	}
	return percentOf(decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole))))
}

func percentOf(ratio decimal.Decimal) int {
	return int(ratio.Mul(hundred).Round(0).IntPart())
}

func capped(v int) int {
	if v > 100 {
		return 100
	}
	return v
}
