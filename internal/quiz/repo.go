package quiz

import "context"

type ListOpts struct {
	ExamID string
	Limit  int
	Offset int
}

type AttemptListOpts struct {
	QuizID    string
	StudentID string
	Status    AttemptStatus
	Limit     int
	Offset    int
}

// Store is the persistence contract for quizzes, exams, and attempts.
//
// Implementations must guarantee:
//   - at most one in_progress attempt per (student, quiz): CreateAttempt
//     backed by a storage-level uniqueness constraint, returning the
//     existing row on conflict rather than failing;
//   - MutateAttempt runs its callback as an atomic read-modify-write of a
//     single attempt record, so concurrent submissions interleave without
//     losing answers;
//   - deleting a quiz deletes its attempts.
type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	ListExams(ctx context.Context, limit, offset int) ([]Exam, error)
	DeleteExam(ctx context.Context, id string) error

	PutQuiz(ctx context.Context, z Quiz) error
	// GetQuiz returns the full quiz including answer keys; callers serving
	// students sanitize before responding.
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error)
	DeleteQuiz(ctx context.Context, id string) error

	// CreateAttempt persists a new in_progress attempt. If another
	// in_progress attempt already exists for the same (student, quiz) —
	// including one inserted by a concurrent request — the existing attempt
	// is returned instead.
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	// FindActiveAttempt returns the in_progress attempt for (student, quiz),
	// or ErrNotFound.
	FindActiveAttempt(ctx context.Context, quizID, studentID string) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// MutateAttempt atomically loads the attempt owned by studentID, applies
	// fn, and persists the result. fn returning an error aborts the write and
	// the error is returned as-is. ErrNotFound if the attempt is absent or
	// owned by someone else. fn runs while the implementation holds its lock
	// on the record and must not call back into the Store.
	MutateAttempt(ctx context.Context, id, studentID string, fn func(*Attempt) error) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)

	// Results lists completed attempts for a quiz joined with student names,
	// ordered by completion time ascending (attempt id as tiebreaker).
	// Percentage is left for the caller to fill in.
	Results(ctx context.Context, quizID string) ([]ResultRow, error)
}
