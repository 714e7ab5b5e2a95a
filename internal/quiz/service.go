package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-edu/academy-api/internal/grading"
)

// Service is the attempt lifecycle controller: start → submit answers →
// complete, with ownership checks and grading. Role gating stays in the HTTP
// layer; everything here is caller-identity based.
type Service struct {
	store  Store
	grader grading.Grader
	now    func() time.Time
}

func NewService(store Store, grader grading.Grader) *Service {
	return &Service{store: store, grader: grader, now: time.Now}
}

// Start begins an attempt, or resumes one: if the student already has an
// in_progress attempt for this quiz it is returned unchanged, so a dropped
// connection never orphans progress. MaxScore is snapshotted here and never
// recomputed.
func (s *Service) Start(ctx context.Context, studentID, quizID string) (Attempt, error) {
	z, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if !z.Active {
		return Attempt{}, fmt.Errorf("%w: quiz %s is not active", ErrForbidden, quizID)
	}
	if a, err := s.store.FindActiveAttempt(ctx, quizID, studentID); err == nil {
		return a, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Attempt{}, err
	}
	a := Attempt{
		ID:        uuid.NewString(),
		QuizID:    z.ID,
		ExamID:    z.ExamID,
		StudentID: studentID,
		Status:    StatusInProgress,
		MaxScore:  z.MaxScore(),
		Answers:   []Answer{},
		StartedAt: s.now().Unix(),
	}
	// The store's uniqueness constraint settles concurrent starts: the loser
	// gets the winner's attempt back.
	return s.store.CreateAttempt(ctx, a)
}

// SubmitAnswer grades payload against the question and upserts the result
// into the attempt, keyed by question id. The score is recomputed from the
// full answer set on every call — never incremented — which is what makes
// resubmission idempotent.
//
// The quiz lookup and grading happen before the attempt mutation: the grader
// is pure, and MutateAttempt's callback must not re-enter the store.
func (s *Service) SubmitAnswer(ctx context.Context, attemptID, studentID, questionID string, payload interface{}) (Answer, float64, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Answer{}, 0, err
	}
	if a.StudentID != studentID {
		return Answer{}, 0, fmt.Errorf("%w: attempt %s", ErrNotFound, attemptID)
	}
	if a.Status != StatusInProgress {
		return Answer{}, 0, ErrInvalidState
	}
	z, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Answer{}, 0, err
	}
	q, ok := z.Question(questionID)
	if !ok {
		return Answer{}, 0, fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	res, err := s.grader.Grade(ctx, gradingView(q), payload)
	if err != nil {
		if errors.Is(err, grading.ErrInvalidSubmission) {
			return Answer{}, 0, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
		}
		return Answer{}, 0, err
	}
	graded := Answer{
		QuestionID:        questionID,
		SelectedOptionIDs: res.Selected,
		Text:              res.Text,
		Correct:           res.Correct,
		PointsAwarded:     res.Points,
	}

	updated, err := s.store.MutateAttempt(ctx, attemptID, studentID, func(a *Attempt) error {
		// Re-checked under the row lock: the attempt may have completed
		// between the read above and this write.
		if a.Status != StatusInProgress {
			return ErrInvalidState
		}
		a.PutAnswer(graded)
		a.Score = a.TotalPoints()
		return nil
	})
	if err != nil {
		return Answer{}, 0, err
	}
	return graded, updated.Score, nil
}

// Complete is the one-way transition in_progress → completed.
func (s *Service) Complete(ctx context.Context, attemptID, studentID string) (CompletionSummary, error) {
	a, err := s.store.MutateAttempt(ctx, attemptID, studentID, func(a *Attempt) error {
		if a.Status != StatusInProgress {
			return ErrInvalidState
		}
		a.Status = StatusCompleted
		a.CompletedAt = s.now().Unix()
		return nil
	})
	if err != nil {
		return CompletionSummary{}, err
	}
	return CompletionSummary{
		Score:      a.Score,
		MaxScore:   a.MaxScore,
		Percentage: Percent(a.Score, a.MaxScore),
	}, nil
}

// GetAttempt returns the attempt only to its owner; anyone else sees
// ErrNotFound, indistinguishable from absence.
func (s *Service) GetAttempt(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, fmt.Errorf("%w: attempt %s", ErrNotFound, attemptID)
	}
	return a, nil
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// Results reports one row per completed attempt (a student with two
// completed attempts yields two rows), completion time ascending.
func (s *Service) Results(ctx context.Context, quizID string) ([]ResultRow, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	rows, err := s.store.Results(ctx, quizID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Percentage = Percent(rows[i].Score, rows[i].MaxScore)
	}
	return rows, nil
}

// DeleteQuiz removes the quiz and, by cascade, every attempt against it.
func (s *Service) DeleteQuiz(ctx context.Context, quizID string) error {
	return s.store.DeleteQuiz(ctx, quizID)
}

func gradingView(q Question) grading.Q {
	gq := grading.Q{Type: string(q.Type), Points: q.Points}
	switch q.Type {
	case MultipleChoice:
		gq.AnswerKey = q.CorrectOptionIDs()
	default:
		gq.AnswerKey = []string{q.CorrectAnswer}
	}
	return gq
}
