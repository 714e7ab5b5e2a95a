package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brightpath-edu/academy-api/internal/db"
)

// openTestDB opens an isolated in-memory sqlite database with the production
// schema applied, exercising the same constraints (partial unique index,
// cascade FKs) the service relies on in deployment.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func seedQuiz(t *testing.T, store *SQLStore, z Quiz) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutExam(ctx, Exam{ID: z.ExamID, Title: "seed exam"}); err != nil {
		t.Fatalf("put exam: %v", err)
	}
	if err := store.PutQuiz(ctx, z); err != nil {
		t.Fatalf("put quiz: %v", err)
	}
}

func newAttempt(id, quizID, studentID string) Attempt {
	return Attempt{
		ID:        id,
		QuizID:    quizID,
		ExamID:    "exam-1",
		StudentID: studentID,
		Status:    StatusInProgress,
		MaxScore:  3,
		Answers:   []Answer{},
		StartedAt: time.Now().Unix(),
	}
}

func TestSQLStoreQuizRoundtrip(t *testing.T) {
	store := NewSQLStore(openTestDB(t), "sqlite")
	ctx := context.Background()
	seedQuiz(t, store, twoQuestionQuiz("quiz-1", true))

	z, err := store.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(z.Questions) != 2 || z.MaxScore() != 3 || !z.Active {
		t.Fatalf("quiz did not round-trip: %+v", z)
	}
	q, ok := z.Question("q1")
	if !ok || len(q.Options) != 3 || len(q.CorrectOptionIDs()) != 1 {
		t.Fatalf("question q1 did not round-trip: %+v", q)
	}

	if _, err := store.GetQuiz(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing quiz: got %v, want ErrNotFound", err)
	}

	sums, err := store.ListQuizzes(ctx, ListOpts{ExamID: "exam-1"})
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(sums) != 1 || sums[0].QuestionCount != 2 {
		t.Fatalf("summaries wrong: %+v", sums)
	}
}

func TestSQLStoreSingleActiveAttempt(t *testing.T) {
	store := NewSQLStore(openTestDB(t), "sqlite")
	ctx := context.Background()
	seedQuiz(t, store, twoQuestionQuiz("quiz-1", true))

	first, err := store.CreateAttempt(ctx, newAttempt("att-1", "quiz-1", "stu-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// A second insert for the same (student, quiz) hits the partial unique
	// index and hands back the original row.
	second, err := store.CreateAttempt(ctx, newAttempt("att-2", "quiz-1", "stu-1"))
	if err != nil {
		t.Fatalf("create conflicting: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("conflict returned %s, want existing %s", second.ID, first.ID)
	}

	// Another student is unaffected.
	if _, err := store.CreateAttempt(ctx, newAttempt("att-3", "quiz-1", "stu-2")); err != nil {
		t.Fatalf("other student blocked: %v", err)
	}

	// Once the attempt completes, the slot reopens.
	if _, err := store.MutateAttempt(ctx, first.ID, "stu-1", func(a *Attempt) error {
		a.Status = StatusCompleted
		a.CompletedAt = time.Now().Unix()
		return nil
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	fresh, err := store.CreateAttempt(ctx, newAttempt("att-4", "quiz-1", "stu-1"))
	if err != nil {
		t.Fatalf("create after completion: %v", err)
	}
	if fresh.ID != "att-4" {
		t.Fatalf("expected fresh attempt, got %s", fresh.ID)
	}
}

func TestSQLStoreMutateAttempt(t *testing.T) {
	store := NewSQLStore(openTestDB(t), "sqlite")
	ctx := context.Background()
	seedQuiz(t, store, twoQuestionQuiz("quiz-1", true))
	if _, err := store.CreateAttempt(ctx, newAttempt("att-1", "quiz-1", "stu-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.MutateAttempt(ctx, "att-1", "stu-1", func(a *Attempt) error {
		a.PutAnswer(Answer{QuestionID: "q1", SelectedOptionIDs: []string{"opt-a"}, Correct: true, PointsAwarded: 2})
		a.Score = a.TotalPoints()
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if updated.Score != 2 || len(updated.Answers) != 1 {
		t.Fatalf("mutation not applied: %+v", updated)
	}

	got, err := store.GetAttempt(ctx, "att-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 2 || len(got.Answers) != 1 || got.Answers[0].QuestionID != "q1" {
		t.Fatalf("mutation not persisted: %+v", got)
	}

	// Wrong owner looks like absence, and the callback error aborts the write.
	if _, err := store.MutateAttempt(ctx, "att-1", "stu-2", func(*Attempt) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign mutate: got %v, want ErrNotFound", err)
	}
	sentinel := errors.New("abort")
	if _, err := store.MutateAttempt(ctx, "att-1", "stu-1", func(a *Attempt) error {
		a.Score = 99
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("callback error not propagated: %v", err)
	}
	got, _ = store.GetAttempt(ctx, "att-1")
	if got.Score != 2 {
		t.Fatalf("aborted mutation leaked: score=%v", got.Score)
	}
}

func TestSQLStoreDeleteQuizCascades(t *testing.T) {
	store := NewSQLStore(openTestDB(t), "sqlite")
	ctx := context.Background()
	seedQuiz(t, store, twoQuestionQuiz("quiz-1", true))
	if _, err := store.CreateAttempt(ctx, newAttempt("att-1", "quiz-1", "stu-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.DeleteQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := store.GetAttempt(ctx, "att-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attempt survived cascade: %v", err)
	}
	if err := store.DeleteQuiz(ctx, "quiz-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestSQLStoreResults(t *testing.T) {
	dbh := openTestDB(t)
	store := NewSQLStore(dbh, "sqlite")
	ctx := context.Background()
	seedQuiz(t, store, twoQuestionQuiz("quiz-1", true))

	if _, err := dbh.ExecContext(ctx,
		`INSERT INTO users (id,username,name,role,password_hash,created_at) VALUES
		 ('stu-1','ada','Ada Lovelace','student','',0)`); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	base := time.Now().Unix()
	complete := func(id, student string, score float64, at int64) {
		t.Helper()
		if _, err := store.CreateAttempt(ctx, newAttempt(id, "quiz-1", student)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if _, err := store.MutateAttempt(ctx, id, student, func(a *Attempt) error {
			a.Score = score
			a.Status = StatusCompleted
			a.CompletedAt = at
			return nil
		}); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}
	complete("att-late", "stu-1", 3, base+60)
	complete("att-early", "stu-2", 1, base)

	// An in-progress attempt must not appear.
	if _, err := store.CreateAttempt(ctx, newAttempt("att-open", "quiz-1", "stu-3")); err != nil {
		t.Fatalf("create open: %v", err)
	}

	rows, err := store.Results(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 completed rows, got %d", len(rows))
	}
	if rows[0].AttemptID != "att-early" || rows[1].AttemptID != "att-late" {
		t.Fatalf("rows out of completion order: %+v", rows)
	}
	if rows[1].StudentName != "Ada Lovelace" {
		t.Fatalf("student name = %q, want Ada Lovelace", rows[1].StudentName)
	}
	// Unknown students fall back to their id.
	if rows[0].StudentName != "stu-2" {
		t.Fatalf("fallback name = %q, want stu-2", rows[0].StudentName)
	}
}
