package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("service")

// DefaultAdminSecret is the secret of the bootstrap administrator when none is configured.
const DefaultAdminSecret = "admin123"

// Options configure the services.
type Options struct {
	// Now is the clock used for all timestamps. Defaults to time.Now.
	Now func() time.Time
	// AdminSecret is the secret of the account created by Accounts.Bootstrap.
	AdminSecret string
	// Fanout bounds parallel work of reports and preloading.
	Fanout int
	// NewID generates entity ids. Defaults to random UUIDs.
	NewID func() string
}

// Services bundles every entity service on one store.
type Services struct {
	Users        *Users
	Applications *Applications
	Exams        *Exams
	Activities   *Activities
	Attachments  *Attachments
	Violations   *Violations
	Accounts     *Accounts
	Credit       *Credit
	Preloader    *Preloader
}

// New creates all services on st.
func New(st store.IStore, opts Options) *Services {
	b := newBase(st, opts)
	users := &Users{base: b}
	return &Services{
		Users:        users,
		Applications: &Applications{records: records[*model.Application]{base: b, kind: model.KindApplication}},
		Exams:        &Exams{records: records[*model.Exam]{base: b, kind: model.KindExam}},
		Activities:   &Activities{records: records[*model.Activity]{base: b, kind: model.KindActivity}},
		Attachments:  &Attachments{records: records[*model.Attachment]{base: b, kind: model.KindAttachment}},
		Violations:   &Violations{records: records[*model.Violation]{base: b, kind: model.KindViolation}},
		Accounts:     &Accounts{users: users, base: b},
		Credit:       &Credit{base: b},
		Preloader:    &Preloader{base: b},
	}
}

// --------------------------------------------------------------------------
// Shared plumbing
// --------------------------------------------------------------------------

type base struct {
	store       store.IStore
	now         func() time.Time
	newID       func() string
	adminSecret string
	fanout      int
}

func newBase(st store.IStore, opts Options) base {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.AdminSecret == "" {
		opts.AdminSecret = DefaultAdminSecret
	}
	if opts.Fanout <= 0 {
		opts.Fanout = 8
	}
	return base{
		store:       st,
		now:         opts.Now,
		newID:       opts.NewID,
		adminSecret: opts.AdminSecret,
		fanout:      opts.Fanout,
	}
}

func (b base) timestamp() time.Time {
	return b.now().UTC()
}

// ownerKey normalizes and validates a callsign.
func ownerKey(callsign string) (string, error) {
	key := model.NormalizeOwnerKey(callsign)
	if err := model.ValidateOwnerKey(key); err != nil {
		return "", store.WrapError(store.RetCValidationFailed, err, "invalid callsign %q", callsign)
	}
	return key, nil
}

// profile returns the stored profile of owner, with secret, or nil.
func (b base) profile(ctx context.Context, owner string) (*model.Profile, error) {
	doc, loaded, err := b.store.ReadEntity(ctx, owner, model.KindProfile, "")
	if err != nil || !loaded {
		return nil, err
	}
	return doc.(*model.Profile), nil
}

// requireProfile is profile, failing with NotFound when the owner has none.
func (b base) requireProfile(ctx context.Context, owner string) (*model.Profile, error) {
	p, err := b.profile(ctx, owner)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, store.NewError(store.RetCNotFound, "user %s does not exist", owner)
	}
	return p, nil
}

// required returns a ValidationFailed error naming the empty fields.
func required(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return store.NewError(store.RetCValidationFailed, "missing required fields: %s", strings.Join(missing, ", "))
}

func field(name, value string) [2]string {
	return [2]string{name, value}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// --------------------------------------------------------------------------
// Generic record access
// --------------------------------------------------------------------------

// records implements the lookups shared by every record kind.
type records[T model.Document] struct {
	base
	kind model.Kind
}

// GetAll returns the records of every owner, annotated with their owner key.
func (r records[T]) GetAll(ctx context.Context) ([]T, error) {
	docs, err := r.store.ListAllEntities(ctx, r.kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.(T))
	}
	return out, nil
}

// GetByOwner returns the records of one owner, ordered by id. An unknown
// owner has no records.
func (r records[T]) GetByOwner(ctx context.Context, callsign string) ([]T, error) {
	owner, err := ownerKey(callsign)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.ListEntitiesForOwner(ctx, owner, r.kind)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		doc.SetOwner(owner)
		out = append(out, doc.(T))
	}
	return out, nil
}

// GetByID returns the record with id, or the zero value if it does not exist.
func (r records[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	_, doc, err := r.locate(ctx, id)
	if store.IsNotFound(err) {
		return zero, nil
	}
	if err != nil {
		return zero, err
	}
	return doc, nil
}

// locate finds the owner of id and reads the record. Both a missing index
// entry and a missing document are NotFound.
func (r records[T]) locate(ctx context.Context, id string) (string, T, error) {
	var zero T
	if id == "" {
		return "", zero, store.NewError(store.RetCValidationFailed, "missing %s id", r.kind)
	}
	owner, err := r.store.FindOwner(ctx, r.kind, id)
	if err != nil {
		return "", zero, err
	}
	doc, loaded, err := r.store.ReadEntity(ctx, owner, r.kind, id)
	if err != nil {
		return "", zero, err
	}
	if !loaded {
		return "", zero, store.NewError(store.RetCNotFound, "%s %s not found", r.kind, id)
	}
	doc.SetOwner(owner)
	return owner, doc.(T), nil
}

// create writes a new record below owner and returns it annotated.
func (r records[T]) create(ctx context.Context, owner string, doc T) (T, error) {
	var zero T
	if err := r.store.CreateEntity(ctx, owner, doc); err != nil {
		return zero, err
	}
	doc.SetOwner(owner)
	return doc, nil
}

// modify applies fn to the stored record with id under the owner's lock.
func (r records[T]) modify(ctx context.Context, id string, fn func(doc T, now time.Time) error) (T, error) {
	var zero T
	if id == "" {
		return zero, store.NewError(store.RetCValidationFailed, "missing %s id", r.kind)
	}
	owner, err := r.store.FindOwner(ctx, r.kind, id)
	if err != nil {
		return zero, err
	}
	if _, err := r.requireProfile(ctx, owner); err != nil {
		return zero, err
	}
	doc, err := r.store.UpdateEntity(ctx, owner, r.kind, id, func(doc model.Document) error {
		return fn(doc.(T), r.timestamp())
	})
	if err != nil {
		return zero, err
	}
	doc.SetOwner(owner)
	return doc.(T), nil
}
