package quiz

import (
	"fmt"
	"math"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question carries exactly the fields its Type needs: Options for
// multiple_choice, CorrectAnswer for the text types. Validate enforces that
// shape before a quiz is stored, so mixed variants never reach the database.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Points        float64      `json:"points"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
}

func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question: missing id")
	}
	if q.Points < 0 {
		return fmt.Errorf("question %s: negative points", q.ID)
	}
	switch q.Type {
	case MultipleChoice:
		if q.CorrectAnswer != "" {
			return fmt.Errorf("question %s: correct_answer not allowed for multiple_choice", q.ID)
		}
		seen := map[string]bool{}
		for _, o := range q.Options {
			if o.ID == "" {
				return fmt.Errorf("question %s: option missing id", q.ID)
			}
			if seen[o.ID] {
				return fmt.Errorf("question %s: duplicate option id %s", q.ID, o.ID)
			}
			seen[o.ID] = true
		}
	case TrueFalse, ShortAnswer:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %s: options not allowed for %s", q.ID, q.Type)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("question %s: missing correct_answer", q.ID)
		}
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	return nil
}

// CorrectOptionIDs returns the option ids marked correct. May be empty:
// a multiple_choice question with no correct options expects an empty
// selection.
func (q Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

type Quiz struct {
	ID           string     `json:"id"`
	ExamID       string     `json:"exam_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	TimeLimitMin int        `json:"time_limit_min"`
	Active       bool       `json:"active"`
	Questions    []Question `json:"questions"`
	CreatedAt    int64      `json:"created_at,omitempty"`
}

func (z Quiz) Validate() error {
	if z.Title == "" {
		return fmt.Errorf("quiz: missing title")
	}
	if z.TimeLimitMin < 0 {
		return fmt.Errorf("quiz: negative time limit")
	}
	seen := map[string]bool{}
	for _, q := range z.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if seen[q.ID] {
			return fmt.Errorf("quiz: duplicate question id %s", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// MaxScore is the total points available. Snapshotted onto an Attempt at
// start time; later quiz edits do not touch existing attempts.
func (z Quiz) MaxScore() float64 {
	var sum float64
	for _, q := range z.Questions {
		sum += q.Points
	}
	return sum
}

func (z Quiz) Question(id string) (Question, bool) {
	for _, q := range z.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Sanitized strips answer keys for student-facing reads.
func (z Quiz) Sanitized() Quiz {
	out := z
	out.Questions = make([]Question, len(z.Questions))
	for i, q := range z.Questions {
		q.CorrectAnswer = ""
		if len(q.Options) > 0 {
			opts := make([]Option, len(q.Options))
			for j, o := range q.Options {
				o.Correct = false
				opts[j] = o
			}
			q.Options = opts
		}
		out.Questions[i] = q
	}
	return out
}

type QuizSummary struct {
	ID            string `json:"id"`
	ExamID        string `json:"exam_id"`
	Title         string `json:"title"`
	TimeLimitMin  int    `json:"time_limit_min"`
	Active        bool   `json:"active"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at"`
}

type Exam struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id,omitempty"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in_progress"
	StatusCompleted  AttemptStatus = "completed"
	StatusTimedOut   AttemptStatus = "timed_out"
)

// Answer is the graded record for one question. Correct and PointsAwarded are
// set by the grading engine, never by the caller.
type Answer struct {
	QuestionID        string   `json:"question_id"`
	SelectedOptionIDs []string `json:"selected_option_ids,omitempty"`
	Text              string   `json:"text,omitempty"`
	Correct           bool     `json:"correct"`
	PointsAwarded     float64  `json:"points_awarded"`
}

type Attempt struct {
	ID          string        `json:"id"`
	QuizID      string        `json:"quiz_id"`
	ExamID      string        `json:"exam_id"`
	StudentID   string        `json:"student_id"`
	Status      AttemptStatus `json:"status"`
	MaxScore    float64       `json:"max_score"`
	Score       float64       `json:"score"`
	Answers     []Answer      `json:"answers"`
	StartedAt   int64         `json:"started_at"`
	CompletedAt int64         `json:"completed_at,omitempty"`
}

// PutAnswer upserts by question id: a resubmission replaces the earlier
// answer in place, otherwise the answer is appended. Insertion order is
// preserved.
func (a *Attempt) PutAnswer(ans Answer) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == ans.QuestionID {
			a.Answers[i] = ans
			return
		}
	}
	a.Answers = append(a.Answers, ans)
}

// TotalPoints recomputes the score from the full answer set. Callers must
// assign Score from this rather than incrementing it, so resubmissions never
// double-count.
func (a Attempt) TotalPoints() float64 {
	var sum float64
	for _, ans := range a.Answers {
		sum += ans.PointsAwarded
	}
	return sum
}

type ResultRow struct {
	AttemptID   string  `json:"attempt_id"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Percentage  float64 `json:"percentage"`
	CompletedAt int64   `json:"completed_at"`
}

type CompletionSummary struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
}

// Percent reports round(score/max*100). A quiz with no questions has max 0;
// such attempts complete at 0%, they do not divide.
func Percent(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(score / max * 100)
}
