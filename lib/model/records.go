package model

import "time"

// --------------------------------------------------------------------------
// Application
// --------------------------------------------------------------------------

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	return s == ApplicationPending || s == ApplicationApproved || s == ApplicationRejected
}

// ApplicationType is the controller rating applied for.
type ApplicationType string

const (
	TypeS1 ApplicationType = "S1"
	TypeS2 ApplicationType = "S2"
	TypeS3 ApplicationType = "S3"
	TypeC1 ApplicationType = "C1"
	TypeC2 ApplicationType = "C2"
	TypeC3 ApplicationType = "C3"
)

func (t ApplicationType) Valid() bool {
	switch t {
	case TypeS1, TypeS2, TypeS3, TypeC1, TypeC2, TypeC3:
		return true
	}
	return false
}

// Application is a trainee's request for a rating.
type Application struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	Status          ApplicationStatus `json:"status"`
	Type            ApplicationType   `json:"type"`
	EnglishLevel    string            `json:"englishLevel"`
	Experience      string            `json:"experience"`
	Reason          string            `json:"reason"`
	Attachments     []string          `json:"attachments,omitempty"`
	TeacherCallsign string            `json:"teacherCallsign,omitempty"`
	TeacherComment  string            `json:"teacherComment,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time        `json:"rejectedAt,omitempty"`

	OwnerKey string `json:"callsign,omitempty"`
}

func (a *Application) Kind() Kind          { return KindApplication }
func (a *Application) DocID() string       { return a.ID }
func (a *Application) Owner() string       { return a.OwnerKey }
func (a *Application) SetOwner(key string) { a.OwnerKey = key }
func (a *Application) sealed()             {}

func (a *Application) Clone() Document {
	c := *a
	c.Attachments = cloneStrings(a.Attachments)
	c.ApprovedAt = cloneTime(a.ApprovedAt)
	c.RejectedAt = cloneTime(a.RejectedAt)
	return &c
}

// Transition moves the application to status and stamps the matching
// timestamp the first time that status is reached.
func (a *Application) Transition(status ApplicationStatus, now time.Time) {
	if status == a.Status {
		return
	}
	a.Status = status
	switch status {
	case ApplicationApproved:
		stampOnce(&a.ApprovedAt, now)
	case ApplicationRejected:
		stampOnce(&a.RejectedAt, now)
	}
}

// --------------------------------------------------------------------------
// Scheduling records (Exam, Activity)
// --------------------------------------------------------------------------

// ScheduleStatus is the state shared by exams and activities.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleConfirmed ScheduleStatus = "confirmed"
	ScheduleCompleted ScheduleStatus = "completed"
)

func (s ScheduleStatus) Valid() bool {
	return s == SchedulePending || s == ScheduleConfirmed || s == ScheduleCompleted
}

// Result of a completed exam or activity.
type Result string

const (
	ResultPass Result = "pass"
	ResultFail Result = "fail"
)

func (r Result) Valid() bool { return r == ResultPass || r == ResultFail }

// ExamType distinguishes written theory exams from simulator sessions.
type ExamType string

const (
	ExamTheory    ExamType = "theory"
	ExamSimulator ExamType = "simulator"
)

func (t ExamType) Valid() bool { return t == ExamTheory || t == ExamSimulator }

// Exam is a requested or scheduled exam.
type Exam struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	Status          ScheduleStatus `json:"status"`
	ExamType        ExamType       `json:"examType"`
	PreferredDate   string         `json:"preferredDate"`
	PreferredTime   string         `json:"preferredTime"`
	ExamDate        string         `json:"examDate,omitempty"`
	ExamTime        string         `json:"examTime,omitempty"`
	ExamRoom        string         `json:"examRoom,omitempty"`
	TeacherCallsign string         `json:"teacherCallsign,omitempty"`
	Result          Result         `json:"result,omitempty"`
	Score           *int           `json:"score,omitempty"`
	Comment         string         `json:"comment,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	ConfirmedAt     *time.Time     `json:"confirmedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`

	OwnerKey string `json:"callsign,omitempty"`
}

func (e *Exam) Kind() Kind          { return KindExam }
func (e *Exam) DocID() string       { return e.ID }
func (e *Exam) Owner() string       { return e.OwnerKey }
func (e *Exam) SetOwner(key string) { e.OwnerKey = key }
func (e *Exam) sealed()             {}

func (e *Exam) Clone() Document {
	c := *e
	if e.Score != nil {
		score := *e.Score
		c.Score = &score
	}
	c.ConfirmedAt = cloneTime(e.ConfirmedAt)
	c.CompletedAt = cloneTime(e.CompletedAt)
	return &c
}

// Transition moves the exam to status, stamping confirmedAt or completedAt once.
func (e *Exam) Transition(status ScheduleStatus, now time.Time) {
	if status == e.Status {
		return
	}
	e.Status = status
	stampSchedule(status, &e.ConfirmedAt, &e.CompletedAt, now)
}

// Activity is a requested or scheduled supervised controlling session.
type Activity struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	Status           ScheduleStatus `json:"status"`
	ControlRoom      string         `json:"controlRoom"`
	ActivityCallsign string         `json:"activityCallsign"`
	PreferredDate    string         `json:"preferredDate"`
	PreferredTime    string         `json:"preferredTime"`
	ActivityDate     string         `json:"activityDate,omitempty"`
	ActivityTime     string         `json:"activityTime,omitempty"`
	TeacherCallsign  string         `json:"teacherCallsign,omitempty"`
	Result           Result         `json:"result,omitempty"`
	Permission       string         `json:"permission,omitempty"`
	Comment          string         `json:"comment,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	ConfirmedAt      *time.Time     `json:"confirmedAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`

	OwnerKey string `json:"callsign,omitempty"`
}

func (a *Activity) Kind() Kind          { return KindActivity }
func (a *Activity) DocID() string       { return a.ID }
func (a *Activity) Owner() string       { return a.OwnerKey }
func (a *Activity) SetOwner(key string) { a.OwnerKey = key }
func (a *Activity) sealed()             {}

func (a *Activity) Clone() Document {
	c := *a
	c.ConfirmedAt = cloneTime(a.ConfirmedAt)
	c.CompletedAt = cloneTime(a.CompletedAt)
	return &c
}

// Transition moves the activity to status, stamping confirmedAt or completedAt once.
func (a *Activity) Transition(status ScheduleStatus, now time.Time) {
	if status == a.Status {
		return
	}
	a.Status = status
	stampSchedule(status, &a.ConfirmedAt, &a.CompletedAt, now)
}

func stampSchedule(status ScheduleStatus, confirmedAt, completedAt **time.Time, now time.Time) {
	switch status {
	case ScheduleConfirmed:
		stampOnce(confirmedAt, now)
	case ScheduleCompleted:
		stampOnce(completedAt, now)
	}
}

// --------------------------------------------------------------------------
// Attachment
// --------------------------------------------------------------------------

// Attachment is an uploaded file. Content is base64 encoded in the stored JSON.
type Attachment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	Content    []byte    `json:"content"`
	UploadedAt time.Time `json:"uploadedAt"`

	OwnerKey string `json:"callsign,omitempty"`
}

func (a *Attachment) Kind() Kind          { return KindAttachment }
func (a *Attachment) DocID() string       { return a.ID }
func (a *Attachment) Owner() string       { return a.OwnerKey }
func (a *Attachment) SetOwner(key string) { a.OwnerKey = key }
func (a *Attachment) sealed()             {}

func (a *Attachment) Clone() Document {
	c := *a
	if a.Content != nil {
		c.Content = append([]byte(nil), a.Content...)
	}
	return &c
}
