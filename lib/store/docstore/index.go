package docstore

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
)

// Partition is the index entry of one owner: the last written content of
// every document the owner has. Attachments are recorded without content.
type Partition struct {
	Profile      *model.Profile                `json:"profile"`
	Applications map[string]*model.Application `json:"applications"`
	Exams        map[string]*model.Exam        `json:"exams"`
	Activities   map[string]*model.Activity    `json:"activities"`
	Attachments  map[string]*model.Attachment  `json:"attachments"`
	Violations   map[string]*model.Violation   `json:"violations"`
}

// Index is the single document listing every owner and what they have.
// It is rewritten as a whole on each mutation.
type Index struct {
	Owners map[string]*Partition `json:"owners"`
}

func newIndex() *Index {
	return &Index{Owners: make(map[string]*Partition)}
}

func newPartition() *Partition {
	return &Partition{
		Applications: make(map[string]*model.Application),
		Exams:        make(map[string]*model.Exam),
		Activities:   make(map[string]*model.Activity),
		Attachments:  make(map[string]*model.Attachment),
		Violations:   make(map[string]*model.Violation),
	}
}

// decodeIndex parses a stored index, filling in missing maps.
func decodeIndex(data []byte) (*Index, error) {
	ix := newIndex()
	if err := json.Unmarshal(data, ix); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if ix.Owners == nil {
		ix.Owners = make(map[string]*Partition)
	}
	for owner, p := range ix.Owners {
		if p == nil {
			p = newPartition()
			ix.Owners[owner] = p
		}
		p.fill()
	}
	return ix, nil
}

func (ix *Index) encode() ([]byte, error) {
	return json.Marshal(ix)
}

// partition returns the owner's entry, creating it when create is set.
func (ix *Index) partition(owner string, create bool) (*Partition, bool) {
	p, ok := ix.Owners[owner]
	if !ok && create {
		p = newPartition()
		ix.Owners[owner] = p
		return p, true
	}
	return p, false
}

// owners returns the sorted owner keys.
func (ix *Index) owners() []string {
	owners := make([]string, 0, len(ix.Owners))
	for owner := range ix.Owners {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// find returns the owner holding the document of kind with id.
func (ix *Index) find(kind model.Kind, id string) (string, bool) {
	for _, owner := range ix.owners() {
		if ix.Owners[owner].has(kind, id) {
			return owner, true
		}
	}
	return "", false
}

func (p *Partition) fill() {
	if p.Applications == nil {
		p.Applications = make(map[string]*model.Application)
	}
	if p.Exams == nil {
		p.Exams = make(map[string]*model.Exam)
	}
	if p.Activities == nil {
		p.Activities = make(map[string]*model.Activity)
	}
	if p.Attachments == nil {
		p.Attachments = make(map[string]*model.Attachment)
	}
	if p.Violations == nil {
		p.Violations = make(map[string]*model.Violation)
	}
}

// put records doc. The stored copy carries no owner annotation and, for
// attachments, no content.
func (p *Partition) put(doc model.Document) {
	if a, ok := doc.(*model.Attachment); ok {
		meta := *a
		meta.Content = nil
		doc = &meta
	}
	c := doc.Clone()
	c.SetOwner("")
	switch d := c.(type) {
	case *model.Profile:
		p.Profile = d
	case *model.Application:
		p.Applications[d.ID] = d
	case *model.Exam:
		p.Exams[d.ID] = d
	case *model.Activity:
		p.Activities[d.ID] = d
	case *model.Attachment:
		p.Attachments[d.ID] = d
	case *model.Violation:
		p.Violations[d.ID] = d
	}
}

// remove drops an entry and reports whether it existed.
func (p *Partition) remove(kind model.Kind, id string) bool {
	if !p.has(kind, id) {
		return false
	}
	switch kind {
	case model.KindProfile:
		p.Profile = nil
	case model.KindApplication:
		delete(p.Applications, id)
	case model.KindExam:
		delete(p.Exams, id)
	case model.KindActivity:
		delete(p.Activities, id)
	case model.KindAttachment:
		delete(p.Attachments, id)
	case model.KindViolation:
		delete(p.Violations, id)
	}
	return true
}

// has reports whether the entry exists. For profiles id is matched against
// the profile id unless it is empty.
func (p *Partition) has(kind model.Kind, id string) bool {
	var ok bool
	switch kind {
	case model.KindProfile:
		ok = p.Profile != nil && (id == "" || p.Profile.ID == id)
	case model.KindApplication:
		_, ok = p.Applications[id]
	case model.KindExam:
		_, ok = p.Exams[id]
	case model.KindActivity:
		_, ok = p.Activities[id]
	case model.KindAttachment:
		_, ok = p.Attachments[id]
	case model.KindViolation:
		_, ok = p.Violations[id]
	}
	return ok
}
