package exam

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	internaldb "examscore/internal/db"
)

// checkStoreContract exercises the behaviour every Store must share.
func checkStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	code := "CONTRACT-" + time.Now().Format("150405.000000000")

	in := &Exam{
		ExamCode:   code,
		Name:       "Contract",
		TotalMarks: 4,
		Duration:   45,
		Questions: []Question{
			{Text: "s", Options: []string{"A", "B"}, CorrectAnswer: StringAnswer("B")},
			{Text: "n", Options: []string{}, CorrectAnswer: NumberAnswer(42)},
			{Text: "b", Options: []string{"true", "false"}, CorrectAnswer: BoolAnswer(true)},
			{Text: "null", CorrectAnswer: Answer{}},
		},
	}
	saved, err := store.Save(ctx, in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("save must assign id and createdAt: %+v", saved)
	}
	if in.ID != "" {
		t.Fatalf("save must not mutate its argument")
	}

	byID, err := store.Find(ctx, saved.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if byID.ExamCode != code || byID.Name != "Contract" || byID.TotalMarks != 4 || byID.Duration != 45 {
		t.Fatalf("unexpected exam fields: %+v", byID)
	}
	if len(byID.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(byID.Questions))
	}
	for i, q := range byID.Questions {
		if !q.CorrectAnswer.Equal(in.Questions[i].CorrectAnswer) {
			t.Fatalf("question %d: answer %#v did not survive storage, want %#v", i, q.CorrectAnswer, in.Questions[i].CorrectAnswer)
		}
		if q.Options == nil {
			t.Fatalf("question %d: options should never be nil", i)
		}
	}

	byCode, err := store.FindByCode(ctx, code)
	if err != nil || byCode.ID != saved.ID {
		t.Fatalf("find by code: exam=%+v err=%v", byCode, err)
	}

	if _, err := store.Find(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find miss: expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindByCode(ctx, code+"-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find by code miss: expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var found bool
	for _, e := range list {
		if e.ID == saved.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("saved exam missing from list")
	}
}

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbConn, err := internaldb.Open(context.Background(), internaldb.Config{
		Driver: internaldb.DriverSQLite,
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbConn.Close() })
	return NewSQLStore(dbConn)
}

func TestMemoryStoreContract(t *testing.T) {
	checkStoreContract(t, NewMemoryStore())
}

func TestSQLStoreContract(t *testing.T) {
	checkStoreContract(t, openTestSQLite(t))
}

func TestSQLStoreDuplicateCodeAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	first, err := store.Save(ctx, &Exam{ExamCode: "DUP", Name: "first"})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	now = now.Add(time.Hour)
	second, err := store.Save(ctx, &Exam{ExamCode: "DUP", Name: "second"})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := store.FindByCode(ctx, "DUP")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("expected earliest exam %s, got %s", first.ID, got.ID)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt changed across storage: got %v want %v", got.CreatedAt, first.CreatedAt)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestSQLStoreClosedDatabaseErrorKinds(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)
	_ = store.db.Close()

	if _, err := store.Find(ctx, "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("find: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.FindByCode(ctx, "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("find by code: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.List(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("list: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Save(ctx, &Exam{ExamCode: "x"}); !errors.Is(err, ErrPersistenceError) {
		t.Fatalf("save: expected ErrPersistenceError, got %v", err)
	}
}
