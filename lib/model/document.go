package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is the closed set of values the store persists. Only the types of
// this package implement it: *Profile, *Application, *Exam, *Activity,
// *Attachment and *Violation.
type Document interface {
	// Kind returns the kind the document is stored under.
	Kind() Kind
	// DocID returns the id of the document. For profiles this is the profile id,
	// which is not part of the storage path.
	DocID() string
	// Owner returns the owner annotation, or "" if the document was not read
	// through a cross-owner listing.
	Owner() string
	// SetOwner sets the owner annotation. It is never persisted.
	SetOwner(key string)
	// Clone returns a deep copy.
	Clone() Document

	sealed()
}

// New returns an empty document of the given kind.
func New(kind Kind) (Document, error) {
	switch kind {
	case KindProfile:
		return &Profile{}, nil
	case KindApplication:
		return &Application{}, nil
	case KindExam:
		return &Exam{}, nil
	case KindActivity:
		return &Activity{}, nil
	case KindAttachment:
		return &Attachment{}, nil
	case KindViolation:
		return &Violation{}, nil
	}
	return nil, fmt.Errorf("unknown document kind %q", kind)
}

// Decode parses the stored representation of a document of the given kind.
func Decode(kind Kind, data []byte) (Document, error) {
	doc, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return doc, nil
}

// Encode returns the stored representation of doc without its owner annotation.
func Encode(doc Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode: nil document")
	}
	if doc.Owner() != "" {
		doc = doc.Clone()
		doc.SetOwner("")
	}
	return json.Marshal(doc)
}

// stampOnce sets *t to now unless it is already set.
func stampOnce(t **time.Time, now time.Time) {
	if *t == nil {
		*t = &now
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
