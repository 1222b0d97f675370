package model

import (
	"fmt"
	"strings"
)

// Kind identifies one of the document kinds.
type Kind string

const (
	KindProfile     Kind = "profile"
	KindApplication Kind = "applications"
	KindExam        Kind = "exams"
	KindActivity    Kind = "activities"
	KindAttachment  Kind = "attachments"
	KindViolation   Kind = "violations"
)

// RecordKinds lists the kinds stored as collections below an owner partition.
var RecordKinds = []Kind{KindApplication, KindExam, KindActivity, KindAttachment, KindViolation}

// IsRecord reports whether the kind is one of the per-owner collections.
func (k Kind) IsRecord() bool {
	switch k {
	case KindApplication, KindExam, KindActivity, KindAttachment, KindViolation:
		return true
	default:
		return false
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindProfile || k.IsRecord()
}

// ParseKind accepts both the collection name ("exams") and the singular form ("exam").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "profile", "profiles", "user", "users":
		return KindProfile, nil
	case "application", "applications":
		return KindApplication, nil
	case "exam", "exams":
		return KindExam, nil
	case "activity", "activities":
		return KindActivity, nil
	case "attachment", "attachments":
		return KindAttachment, nil
	case "violation", "violations":
		return KindViolation, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// NormalizeOwnerKey turns a callsign into the owner key used for paths and the index.
func NormalizeOwnerKey(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}

// ValidateOwnerKey checks that an already normalized key can be used as a path segment.
func ValidateOwnerKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("owner key must not be empty")
	case strings.ContainsAny(key, `/\:`):
		return fmt.Errorf("owner key %q must not contain '/', '\\' or ':'", key)
	case key == "." || key == "..":
		return fmt.Errorf("owner key %q is reserved", key)
	}
	return nil
}
