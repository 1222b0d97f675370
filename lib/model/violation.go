package model

import (
	"fmt"
	"time"
)

// Severity grades a violation.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

func (s Severity) Valid() bool {
	return s == SeverityMinor || s == SeverityModerate || s == SeveritySevere
}

// ParseSeverity validates a severity name.
func ParseSeverity(s string) (Severity, error) {
	if sev := Severity(s); sev.Valid() {
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q (expected minor, moderate or severe)", s)
}

// Violation is a misconduct record filed against an applicant by staff.
type Violation struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Severity         Severity  `json:"severity"`
	Date             time.Time `json:"date"`
	ReportedBy       string    `json:"reportedBy"`
	ReporterCallsign string    `json:"reporterCallsign"`

	OwnerKey string `json:"callsign,omitempty"`
}

func (v *Violation) Kind() Kind          { return KindViolation }
func (v *Violation) DocID() string       { return v.ID }
func (v *Violation) Owner() string       { return v.OwnerKey }
func (v *Violation) SetOwner(key string) { v.OwnerKey = key }
func (v *Violation) sealed()             {}

func (v *Violation) Clone() Document {
	c := *v
	return &c
}
