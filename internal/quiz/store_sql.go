package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SQLStore persists quizzes, exams, and attempts over database/sql. Child
// collections (questions, answers) are embedded JSON columns owned by their
// parent row, so cascade delete comes from the schema's foreign keys rather
// than manual cleanup.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO exams (id,course_id,title,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, title=EXCLUDED.title`,
		e.ID, e.CourseID, e.Title, time.Now().Unix())
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	var e Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id,course_id,title,created_at FROM exams WHERE id=$1`, id).
		Scan(&e.ID, &e.CourseID, &e.Title, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, fmt.Errorf("%w: exam %s", ErrNotFound, id)
	}
	return e, err
}

func (s *SQLStore) ListExams(ctx context.Context, limit, offset int) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,course_id,title,created_at FROM exams ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.CourseID, &e.Title, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: exam %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLStore) PutQuiz(ctx context.Context, z Quiz) error {
	qj, err := json.Marshal(z.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,exam_id,title,description,time_limit_min,active,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET exam_id=EXCLUDED.exam_id, title=EXCLUDED.title,
			description=EXCLUDED.description, time_limit_min=EXCLUDED.time_limit_min,
			active=EXCLUDED.active, questions_json=EXCLUDED.questions_json`,
		z.ID, z.ExamID, z.Title, z.Description, z.TimeLimitMin, z.Active, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	var z Quiz
	var qjson string
	err := s.db.QueryRowContext(ctx,
		`SELECT id,exam_id,title,description,time_limit_min,active,questions_json,created_at FROM quizzes WHERE id=$1`, id).
		Scan(&z.ID, &z.ExamID, &z.Title, &z.Description, &z.TimeLimitMin, &z.Active, &qjson, &z.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, fmt.Errorf("%w: quiz %s", ErrNotFound, id)
	}
	if err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &z.Questions); err != nil {
		return Quiz{}, err
	}
	return z, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error) {
	q := `SELECT id,exam_id,title,time_limit_min,active,questions_json,created_at FROM quizzes`
	args := []interface{}{}
	if opts.ExamID != "" {
		q += ` WHERE exam_id=$1`
		args = append(args, opts.ExamID)
	}
	q += ` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, clampLimit(opts.Limit), opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []QuizSummary{}
	for rows.Next() {
		var sum QuizSummary
		var qjson string
		if err := rows.Scan(&sum.ID, &sum.ExamID, &sum.Title, &sum.TimeLimitMin, &sum.Active, &qjson, &sum.CreatedAt); err != nil {
			return nil, err
		}
		var questions []Question
		if err := json.Unmarshal([]byte(qjson), &questions); err == nil {
			sum.QuestionCount = len(questions)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	// Attempts go with the quiz via ON DELETE CASCADE.
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: quiz %s", ErrNotFound, id)
	}
	return nil
}

// CreateAttempt inserts the attempt. The partial unique index on
// (quiz_id, student_id) WHERE status='in_progress' is the authority on the
// one-active-attempt rule: when the insert hits it — including a race where
// another request inserted first — the existing in_progress attempt is
// returned instead.
func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts (id,quiz_id,exam_id,student_id,status,max_score,score,answers_json,started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.QuizID, a.ExamID, a.StudentID, string(a.Status), a.MaxScore, a.Score, string(aj), a.StartedAt)
	if err != nil {
		if existing, ferr := s.FindActiveAttempt(ctx, a.QuizID, a.StudentID); ferr == nil {
			return existing, nil
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) FindActiveAttempt(ctx context.Context, quizID, studentID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, attemptSelect+` WHERE quiz_id=$1 AND student_id=$2 AND status=$3`,
		quizID, studentID, string(StatusInProgress))
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("%w: no active attempt", ErrNotFound)
	}
	return a, err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, attemptSelect+` WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	return a, err
}

// MutateAttempt is the per-document atomic read-modify-write. Postgres takes
// a row lock (FOR UPDATE); sqlite's single-writer transaction gives the same
// guarantee.
func (s *SQLStore) MutateAttempt(ctx context.Context, id, studentID string, fn func(*Attempt) error) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	if s.driver == "sqlite" {
		// Acquire the write lock up front. A deferred sqlite transaction
		// upgrades to a write at the UPDATE below, and that upgrade fails with
		// SQLITE_BUSY instead of waiting out busy_timeout.
		if _, err := tx.ExecContext(ctx, `UPDATE attempts SET status=status WHERE id=$1`, id); err != nil {
			return Attempt{}, err
		}
	}

	q := attemptSelect + ` WHERE id=$1 AND student_id=$2`
	if s.driver == "postgres" {
		q += ` FOR UPDATE`
	}
	a, err := scanAttempt(tx.QueryRowContext(ctx, q, id, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	if err != nil {
		return Attempt{}, err
	}

	if err := fn(&a); err != nil {
		return Attempt{}, err
	}

	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	var completedAt interface{}
	if a.CompletedAt != 0 {
		completedAt = a.CompletedAt
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE attempts SET status=$1, score=$2, answers_json=$3, completed_at=$4 WHERE id=$5`,
		string(a.Status), a.Score, string(aj), completedAt, a.ID); err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := attemptSelect
	args := []interface{}{}
	where := ""
	add := func(cond string, v interface{}) {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		args = append(args, v)
		where += cond + "$" + strconv.Itoa(len(args))
	}
	if opts.QuizID != "" {
		add("quiz_id=", opts.QuizID)
	}
	if opts.StudentID != "" {
		add("student_id=", opts.StudentID)
	}
	if opts.Status != "" {
		add("status=", string(opts.Status))
	}
	q += where + ` ORDER BY started_at DESC, id LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, clampLimit(opts.Limit), opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) Results(ctx context.Context, quizID string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.student_id, COALESCE(NULLIF(u.name,''), u.username, a.student_id),
		        a.score, a.max_score, a.completed_at
		 FROM attempts a
		 LEFT JOIN users u ON u.id = a.student_id
		 WHERE a.quiz_id=$1 AND a.status=$2
		 ORDER BY a.completed_at ASC, a.id ASC`,
		quizID, string(StatusCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ResultRow{}
	for rows.Next() {
		var r ResultRow
		var completed sql.NullInt64
		if err := rows.Scan(&r.AttemptID, &r.StudentID, &r.StudentName, &r.Score, &r.MaxScore, &completed); err != nil {
			return nil, err
		}
		r.CompletedAt = completed.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}

const attemptSelect = `SELECT id,quiz_id,exam_id,student_id,status,max_score,score,answers_json,started_at,completed_at FROM attempts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var ajson string
	var status string
	var completed sql.NullInt64
	if err := row.Scan(&a.ID, &a.QuizID, &a.ExamID, &a.StudentID, &status, &a.MaxScore, &a.Score, &ajson, &a.StartedAt, &completed); err != nil {
		return Attempt{}, err
	}
	a.Status = AttemptStatus(status)
	a.CompletedAt = completed.Int64
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		a.Answers = []Answer{}
	}
	return a, nil
}

func clampLimit(n int) int {
	if n <= 0 || n > 500 {
		return 50
	}
	return n
}
