package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store. It mirrors the SQL store's
// contract (single active attempt per student+quiz, atomic attempt mutation,
// cascade delete) and backs the service tests.
type MemoryStore struct {
	mu           sync.RWMutex
	exams        map[string]Exam
	quizzes      map[string]Quiz
	attempts     map[string]Attempt
	studentNames map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams:        map[string]Exam{},
		quizzes:      map[string]Quiz{},
		attempts:     map[string]Attempt{},
		studentNames: map[string]string{},
	}
}

// SetStudentName stands in for the users table when resolving result rows.
func (m *MemoryStore) SetStudentName(studentID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.studentNames[studentID] = name
}

func (m *MemoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = e
	return nil
}

func (m *MemoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("%w: exam %s", ErrNotFound, id)
	}
	return e, nil
}

func (m *MemoryStore) ListExams(_ context.Context, limit, offset int) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Exam, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), nil
}

func (m *MemoryStore) DeleteExam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return fmt.Errorf("%w: exam %s", ErrNotFound, id)
	}
	delete(m.exams, id)
	for qid, z := range m.quizzes {
		if z.ExamID == id {
			delete(m.quizzes, qid)
			m.deleteAttemptsForQuizLocked(qid)
		}
	}
	return nil
}

func (m *MemoryStore) PutQuiz(_ context.Context, z Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[z.ID] = z
	return nil
}

func (m *MemoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("%w: quiz %s", ErrNotFound, id)
	}
	return z, nil
}

func (m *MemoryStore) ListQuizzes(_ context.Context, opts ListOpts) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []QuizSummary{}
	for _, z := range m.quizzes {
		if opts.ExamID != "" && z.ExamID != opts.ExamID {
			continue
		}
		out = append(out, QuizSummary{
			ID: z.ID, ExamID: z.ExamID, Title: z.Title,
			TimeLimitMin: z.TimeLimitMin, Active: z.Active,
			QuestionCount: len(z.Questions), CreatedAt: z.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) DeleteQuiz(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return fmt.Errorf("%w: quiz %s", ErrNotFound, id)
	}
	delete(m.quizzes, id)
	m.deleteAttemptsForQuizLocked(id)
	return nil
}

func (m *MemoryStore) deleteAttemptsForQuizLocked(quizID string) {
	for id, a := range m.attempts {
		if a.QuizID == quizID {
			delete(m.attempts, id)
		}
	}
}

func (m *MemoryStore) CreateAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.attempts {
		if existing.QuizID == a.QuizID && existing.StudentID == a.StudentID && existing.Status == StatusInProgress {
			return existing, nil
		}
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) FindActiveAttempt(_ context.Context, quizID, studentID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.Status == StatusInProgress {
			return a, nil
		}
	}
	return Attempt{}, fmt.Errorf("%w: no active attempt", ErrNotFound)
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	return a, nil
}

func (m *MemoryStore) MutateAttempt(_ context.Context, id, studentID string, fn func(*Attempt) error) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || a.StudentID != studentID {
		return Attempt{}, fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	cp := a
	cp.Answers = append([]Answer(nil), a.Answers...)
	if err := fn(&cp); err != nil {
		return Attempt{}, err
	}
	m.attempts[id] = cp
	return cp, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) Results(_ context.Context, quizID string) ([]ResultRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ResultRow{}
	for _, a := range m.attempts {
		if a.QuizID != quizID || a.Status != StatusCompleted {
			continue
		}
		name := m.studentNames[a.StudentID]
		if name == "" {
			name = a.StudentID
		}
		out = append(out, ResultRow{
			AttemptID: a.ID, StudentID: a.StudentID, StudentName: name,
			Score: a.Score, MaxScore: a.MaxScore, CompletedAt: a.CompletedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt != out[j].CompletedAt {
			return out[i].CompletedAt < out[j].CompletedAt
		}
		return out[i].AttemptID < out[j].AttemptID
	})
	return out, nil
}

func paginate[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
