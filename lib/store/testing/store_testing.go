package testing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
)

// StoreFactory creates a fresh, empty store for a single test.
type StoreFactory func(t *testing.T) store.IStore

// RunStoreTests runs the conformance suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, open(t, factory))
		})

		t.Run("ReadMissing", func(t *testing.T) {
			testReadMissing(t, open(t, factory))
		})

		t.Run("EnsureOwnerPartition", func(t *testing.T) {
			testEnsureOwnerPartition(t, open(t, factory))
		})

		t.Run("CreateConflict", func(t *testing.T) {
			testCreateConflict(t, open(t, factory))
		})

		t.Run("ListForOwner", func(t *testing.T) {
			testListForOwner(t, open(t, factory))
		})

		t.Run("ListAll", func(t *testing.T) {
			testListAll(t, open(t, factory))
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, open(t, factory))
		})

		t.Run("ConcurrentUpdates", func(t *testing.T) {
			testConcurrentUpdates(t, open(t, factory))
		})

		t.Run("FindOwner", func(t *testing.T) {
			testFindOwner(t, open(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory))
		})

		t.Run("DeleteOwnerPartition", func(t *testing.T) {
			testDeleteOwnerPartition(t, open(t, factory))
		})

		t.Run("ClearAll", func(t *testing.T) {
			testClearAll(t, open(t, factory))
		})

		t.Run("Validation", func(t *testing.T) {
			testValidation(t, open(t, factory))
		})

		t.Run("ReturnedCopies", func(t *testing.T) {
			testReturnedCopies(t, open(t, factory))
		})

		t.Run("ConcurrentOwnerWrites", func(t *testing.T) {
			testConcurrentOwnerWrites(t, open(t, factory))
		})

		t.Run("ConcurrentCreate", func(t *testing.T) {
			testConcurrentCreate(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func open(t *testing.T, factory StoreFactory) store.IStore {
	s := factory(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Profile returns an active applicant profile for callsign.
func Profile(callsign string) *model.Profile {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Profile{
		ID:        "user-" + callsign,
		Callsign:  callsign,
		Name:      "Controller " + callsign,
		Email:     callsign + "@example.org",
		Role:      model.RoleApplicant,
		Status:    model.ProfileActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Exam returns a pending theory exam with id.
func Exam(id string) *model.Exam {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Exam{
		ID:            id,
		Status:        model.SchedulePending,
		ExamType:      model.ExamTheory,
		PreferredDate: "2026-11-02",
		PreferredTime: "19:00",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Application returns a pending S1 application with id.
func Application(id string) *model.Application {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Application{
		ID:           id,
		Status:       model.ApplicationPending,
		Type:         model.TypeS1,
		EnglishLevel: "B2",
		Reason:       "training",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func mustWrite(t *testing.T, s store.IStore, owner string, doc model.Document) {
	t.Helper()
	if err := s.WriteEntity(context.Background(), owner, doc); err != nil {
		t.Fatalf("WriteEntity(%s, %s %s) failed: %v", owner, doc.Kind(), doc.DocID(), err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testWriteRead(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Profile("7700"))
	mustWrite(t, s, "7700", Exam("e1"))

	doc, loaded, err := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	if err != nil || !loaded {
		t.Fatalf("Expected exam e1 to be loaded, got loaded=%v err=%v", loaded, err)
	}
	exam, ok := doc.(*model.Exam)
	if !ok {
		t.Fatalf("Expected *model.Exam, got %T", doc)
	}
	if exam.ExamType != model.ExamTheory || exam.PreferredDate != "2026-11-02" {
		t.Errorf("Expected exam content to round trip, got %+v", exam)
	}

	doc, loaded, err = s.ReadEntity(ctx, "7700", model.KindProfile, "")
	if err != nil || !loaded {
		t.Fatalf("Expected profile to be loaded, got loaded=%v err=%v", loaded, err)
	}
	if doc.(*model.Profile).Callsign != "7700" {
		t.Errorf("Expected callsign 7700, got %s", doc.(*model.Profile).Callsign)
	}

	// overwrite replaces the content
	updated := Exam("e1")
	updated.ExamRoom = "Room 2"
	mustWrite(t, s, "7700", updated)
	doc, _, _ = s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	if doc.(*model.Exam).ExamRoom != "Room 2" {
		t.Errorf("Expected overwritten exam room, got %q", doc.(*model.Exam).ExamRoom)
	}
}

func testReadMissing(t *testing.T, s store.IStore) {
	ctx := context.Background()
	doc, loaded, err := s.ReadEntity(ctx, "NOBODY", model.KindExam, "e1")
	if err != nil {
		t.Fatalf("Expected no error for a missing document, got %v", err)
	}
	if loaded || doc != nil {
		t.Errorf("Expected missing document, got loaded=%v doc=%v", loaded, doc)
	}
}

func testEnsureOwnerPartition(t *testing.T, s store.IStore) {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.EnsureOwnerPartition(ctx, "7700"); err != nil {
			t.Fatalf("EnsureOwnerPartition failed on call %d: %v", i, err)
		}
	}
	owners, err := s.ListOwners(ctx)
	if err != nil {
		t.Fatalf("ListOwners failed: %v", err)
	}
	if len(owners) != 1 || owners[0] != "7700" {
		t.Errorf("Expected exactly one owner 7700, got %v", owners)
	}
	for _, kind := range model.RecordKinds {
		docs, err := s.ListEntitiesForOwner(ctx, "7700", kind)
		if err != nil {
			t.Fatalf("ListEntitiesForOwner(%s) failed: %v", kind, err)
		}
		if len(docs) != 0 {
			t.Errorf("Expected empty %s listing, got %d entries", kind, len(docs))
		}
	}
}

func testCreateConflict(t *testing.T, s store.IStore) {
	ctx := context.Background()
	if err := s.CreateEntity(ctx, "7700", Profile("7700")); err != nil {
		t.Fatalf("First CreateEntity failed: %v", err)
	}
	err := s.CreateEntity(ctx, "7700", Profile("7700"))
	if !store.IsConflict(err) {
		t.Errorf("Expected Conflict for a second profile, got %v", err)
	}

	if err := s.CreateEntity(ctx, "7700", Exam("e1")); err != nil {
		t.Fatalf("CreateEntity exam failed: %v", err)
	}
	if err := s.CreateEntity(ctx, "7700", Exam("e1")); !store.IsConflict(err) {
		t.Errorf("Expected Conflict for a duplicate exam id, got %v", err)
	}
}

func testListForOwner(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Profile("7700"))
	for i := 0; i < 5; i++ {
		mustWrite(t, s, "7700", Application(fmt.Sprintf("a%d", i)))
	}
	mustWrite(t, s, "7701", Application("other"))

	docs, err := s.ListEntitiesForOwner(ctx, "7700", model.KindApplication)
	if err != nil {
		t.Fatalf("ListEntitiesForOwner failed: %v", err)
	}
	if len(docs) != 5 {
		t.Fatalf("Expected 5 applications, got %d", len(docs))
	}
	for id, doc := range docs {
		if doc.DocID() != id {
			t.Errorf("Expected key %s to match document id %s", id, doc.DocID())
		}
	}
	if _, ok := docs["other"]; ok {
		t.Errorf("Expected listing to be limited to the owner")
	}

	// a write after the listing is visible in the next listing
	mustWrite(t, s, "7700", Application("a5"))
	docs, _ = s.ListEntitiesForOwner(ctx, "7700", model.KindApplication)
	if len(docs) != 6 {
		t.Errorf("Expected 6 applications after write, got %d", len(docs))
	}

	profiles, err := s.ListEntitiesForOwner(ctx, "7700", model.KindProfile)
	if err != nil || len(profiles) != 1 {
		t.Errorf("Expected one profile entry, got %d (err %v)", len(profiles), err)
	}
}

func testListAll(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7701", Exam("x2"))
	mustWrite(t, s, "7701", Exam("x1"))
	mustWrite(t, s, "7700", Exam("y1"))

	docs, err := s.ListAllEntities(ctx, model.KindExam)
	if err != nil {
		t.Fatalf("ListAllEntities failed: %v", err)
	}
	want := []struct{ owner, id string }{{"7700", "y1"}, {"7701", "x1"}, {"7701", "x2"}}
	if len(docs) != len(want) {
		t.Fatalf("Expected %d exams, got %d", len(want), len(docs))
	}
	for i, w := range want {
		if docs[i].Owner() != w.owner || docs[i].DocID() != w.id {
			t.Errorf("Expected entry %d to be %s/%s, got %s/%s", i, w.owner, w.id, docs[i].Owner(), docs[i].DocID())
		}
	}

	// writes invalidate the cross-owner listing
	mustWrite(t, s, "7702", Exam("z1"))
	docs, _ = s.ListAllEntities(ctx, model.KindExam)
	if len(docs) != 4 {
		t.Errorf("Expected 4 exams after write, got %d", len(docs))
	}

	// the owner annotation is not persisted
	doc, _, _ := s.ReadEntity(ctx, "7702", model.KindExam, "z1")
	if doc.Owner() != "" {
		t.Errorf("Expected stored document without owner annotation, got %q", doc.Owner())
	}
}

func testUpdate(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Profile("7700"))
	mustWrite(t, s, "7700", Exam("e1"))
	_, _, _ = s.ReadEntity(ctx, "7700", model.KindExam, "e1")

	doc, err := s.UpdateEntity(ctx, "7700", model.KindExam, "e1", func(doc model.Document) error {
		doc.(*model.Exam).ExamRoom = "Room 3"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateEntity failed: %v", err)
	}
	if doc.(*model.Exam).ExamRoom != "Room 3" {
		t.Errorf("Expected updated document to be returned, got %+v", doc)
	}
	read, _, _ := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	if read.(*model.Exam).ExamRoom != "Room 3" {
		t.Errorf("Expected cached read to see the update, got %q", read.(*model.Exam).ExamRoom)
	}

	// profiles are addressed without id
	if _, err := s.UpdateEntity(ctx, "7700", model.KindProfile, "", func(doc model.Document) error {
		doc.(*model.Profile).Name = "Renamed"
		return nil
	}); err != nil {
		t.Fatalf("UpdateEntity profile failed: %v", err)
	}
	read, _, _ = s.ReadEntity(ctx, "7700", model.KindProfile, "")
	if read.(*model.Profile).Name != "Renamed" {
		t.Errorf("Expected renamed profile, got %q", read.(*model.Profile).Name)
	}

	// an error from fn leaves the document untouched
	rejected := fmt.Errorf("rejected")
	if _, err := s.UpdateEntity(ctx, "7700", model.KindExam, "e1", func(doc model.Document) error {
		doc.(*model.Exam).ExamRoom = "never"
		return rejected
	}); err != rejected {
		t.Errorf("Expected the error of fn, got %v", err)
	}
	read, _, _ = s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	if read.(*model.Exam).ExamRoom != "Room 3" {
		t.Errorf("Expected aborted update to keep Room 3, got %q", read.(*model.Exam).ExamRoom)
	}

	if _, err := s.UpdateEntity(ctx, "7700", model.KindExam, "missing", func(model.Document) error { return nil }); !store.IsNotFound(err) {
		t.Errorf("Expected NotFound for a missing document, got %v", err)
	}
	if _, err := s.UpdateEntity(ctx, "7700", model.KindExam, "e1", func(doc model.Document) error {
		doc.(*model.Exam).ID = "e2"
		return nil
	}); !store.IsValidationFailed(err) {
		t.Errorf("Expected ValidationFailed when the id changes, got %v", err)
	}
}

func testConcurrentUpdates(t *testing.T, s store.IStore) {
	ctx := context.Background()
	const updaters = 20
	mustWrite(t, s, "7700", Application("a1"))

	var wg sync.WaitGroup
	for i := 0; i < updaters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateEntity(ctx, "7700", model.KindApplication, "a1", func(doc model.Document) error {
				app := doc.(*model.Application)
				app.Attachments = append(app.Attachments, fmt.Sprintf("f%02d", i))
				return nil
			})
			if err != nil {
				t.Errorf("concurrent update %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	doc, _, _ := s.ReadEntity(ctx, "7700", model.KindApplication, "a1")
	if n := len(doc.(*model.Application).Attachments); n != updaters {
		t.Errorf("Expected all %d updates to survive, got %d", updaters, n)
	}
}

func testFindOwner(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Exam("e1"))
	mustWrite(t, s, "7701", Application("a1"))

	owner, err := s.FindOwner(ctx, model.KindExam, "e1")
	if err != nil || owner != "7700" {
		t.Errorf("Expected owner 7700, got %q (err %v)", owner, err)
	}
	owner, err = s.FindOwner(ctx, model.KindApplication, "a1")
	if err != nil || owner != "7701" {
		t.Errorf("Expected owner 7701, got %q (err %v)", owner, err)
	}
	if _, err := s.FindOwner(ctx, model.KindExam, "a1"); !store.IsNotFound(err) {
		t.Errorf("Expected NotFound for wrong kind, got %v", err)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Exam("e1"))
	_, _ = s.ListEntitiesForOwner(ctx, "7700", model.KindExam)

	if err := s.DeleteEntity(ctx, "7700", model.KindExam, "e1"); err != nil {
		t.Fatalf("DeleteEntity failed: %v", err)
	}
	if _, loaded, _ := s.ReadEntity(ctx, "7700", model.KindExam, "e1"); loaded {
		t.Errorf("Expected exam to be gone after delete")
	}
	docs, _ := s.ListEntitiesForOwner(ctx, "7700", model.KindExam)
	if len(docs) != 0 {
		t.Errorf("Expected empty listing after delete, got %d", len(docs))
	}
	if _, err := s.FindOwner(ctx, model.KindExam, "e1"); !store.IsNotFound(err) {
		t.Errorf("Expected index entry to be removed, got %v", err)
	}

	if err := s.DeleteEntity(ctx, "7700", model.KindExam, "e1"); err != nil {
		t.Errorf("Expected deleting a missing document to succeed, got %v", err)
	}
}

func testDeleteOwnerPartition(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Profile("7700"))
	mustWrite(t, s, "7700", Exam("e1"))
	mustWrite(t, s, "7700", Application("a1"))
	mustWrite(t, s, "7701", Exam("e2"))
	_, _ = s.ListAllEntities(ctx, model.KindExam)

	if err := s.DeleteOwnerPartition(ctx, "7700"); err != nil {
		t.Fatalf("DeleteOwnerPartition failed: %v", err)
	}
	if _, loaded, _ := s.ReadEntity(ctx, "7700", model.KindProfile, ""); loaded {
		t.Errorf("Expected profile to be gone")
	}
	exams, _ := s.ListAllEntities(ctx, model.KindExam)
	if len(exams) != 1 || exams[0].Owner() != "7701" {
		t.Errorf("Expected only the exam of 7701 to remain, got %d", len(exams))
	}
	owners, _ := s.ListOwners(ctx)
	if len(owners) != 1 || owners[0] != "7701" {
		t.Errorf("Expected owners [7701], got %v", owners)
	}
}

func testClearAll(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Profile("7700"))
	mustWrite(t, s, "7701", Exam("e1"))

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	owners, _ := s.ListOwners(ctx)
	if len(owners) != 0 {
		t.Errorf("Expected no owners after ClearAll, got %v", owners)
	}
	if _, loaded, _ := s.ReadEntity(ctx, "7701", model.KindExam, "e1"); loaded {
		t.Errorf("Expected exam to be gone after ClearAll")
	}

	// the store stays usable
	mustWrite(t, s, "7700", Profile("7700"))
	owners, _ = s.ListOwners(ctx)
	if len(owners) != 1 {
		t.Errorf("Expected one owner after rewrite, got %v", owners)
	}
}

func testValidation(t *testing.T, s store.IStore) {
	ctx := context.Background()
	cases := []struct {
		name string
		err  error
	}{
		{"empty owner", s.WriteEntity(ctx, "", Exam("e1"))},
		{"owner with slash", s.WriteEntity(ctx, "a/b", Exam("e1"))},
		{"lowercase owner", s.WriteEntity(ctx, "abc", Exam("e1"))},
		{"empty id", s.WriteEntity(ctx, "7700", Exam(""))},
		{"id with slash", s.WriteEntity(ctx, "7700", Exam("../x"))},
		{"profile of other owner", s.WriteEntity(ctx, "7700", Profile("7701"))},
		{"nil document", s.WriteEntity(ctx, "7700", nil)},
	}
	for _, c := range cases {
		if !store.IsValidationFailed(c.err) {
			t.Errorf("%s: expected ValidationFailed, got %v", c.name, c.err)
		}
	}
	if _, err := s.ListAllEntities(ctx, model.Kind("bogus")); !store.IsValidationFailed(err) {
		t.Errorf("Expected ValidationFailed for unknown kind, got %v", err)
	}
}

func testReturnedCopies(t *testing.T, s store.IStore) {
	ctx := context.Background()
	mustWrite(t, s, "7700", Exam("e1"))

	doc, _, _ := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	doc.(*model.Exam).ExamRoom = "mutated"

	again, _, _ := s.ReadEntity(ctx, "7700", model.KindExam, "e1")
	if again.(*model.Exam).ExamRoom == "mutated" {
		t.Errorf("Expected callers to receive copies of cached documents")
	}

	list, _ := s.ListEntitiesForOwner(ctx, "7700", model.KindExam)
	list["e1"].(*model.Exam).ExamRoom = "mutated"
	delete(list, "e1")
	list, _ = s.ListEntitiesForOwner(ctx, "7700", model.KindExam)
	if len(list) != 1 || list["e1"].(*model.Exam).ExamRoom == "mutated" {
		t.Errorf("Expected listings to be independent copies")
	}
}

func testConcurrentOwnerWrites(t *testing.T, s store.IStore) {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := "7700"
			if i%2 == 1 {
				owner = "7701"
			}
			if err := s.WriteEntity(ctx, owner, Exam(fmt.Sprintf("e%02d", i))); err != nil {
				t.Errorf("concurrent write %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		id := fmt.Sprintf("e%02d", i)
		if _, err := s.FindOwner(ctx, model.KindExam, id); err != nil {
			t.Errorf("Expected index entry for %s, got %v", id, err)
		}
	}
	all, _ := s.ListAllEntities(ctx, model.KindExam)
	if len(all) != writers {
		t.Errorf("Expected %d exams, got %d", writers, len(all))
	}
}

func testConcurrentCreate(t *testing.T, s store.IStore) {
	ctx := context.Background()
	const racers = 10

	var ok, conflict atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateEntity(ctx, "7700", Profile("7700"))
			switch {
			case err == nil:
				ok.Add(1)
			case store.IsConflict(err):
				conflict.Add(1)
			default:
				t.Errorf("unexpected create error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || conflict.Load() != racers-1 {
		t.Errorf("Expected 1 success and %d conflicts, got %d and %d", racers-1, ok.Load(), conflict.Load())
	}
}
