package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-edu/academy-api/internal/eventlog"
	"github.com/brightpath-edu/academy-api/internal/quiz"
	"github.com/brightpath-edu/academy-api/internal/rbac"
)

type optionRequest struct {
	ID      string `json:"id"`
	Text    string `json:"text" validate:"required"`
	Correct bool   `json:"correct"`
}

type questionRequest struct {
	ID            string          `json:"id"`
	Type          string          `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Text          string          `json:"text" validate:"required"`
	Points        float64         `json:"points" validate:"gte=0"`
	Options       []optionRequest `json:"options" validate:"dive"`
	CorrectAnswer string          `json:"correct_answer"`
}

type quizRequest struct {
	ExamID       string            `json:"exam_id" validate:"required"`
	Title        string            `json:"title" validate:"required"`
	Description  string            `json:"description"`
	TimeLimitMin int               `json:"time_limit_min" validate:"gte=0"`
	Active       bool              `json:"active"`
	Questions    []questionRequest `json:"questions" validate:"dive"`
}

func (req quizRequest) toModel(id string) quiz.Quiz {
	z := quiz.Quiz{
		ID:           id,
		ExamID:       req.ExamID,
		Title:        req.Title,
		Description:  req.Description,
		TimeLimitMin: req.TimeLimitMin,
		Active:       req.Active,
		Questions:    make([]quiz.Question, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		mq := quiz.Question{
			ID:            q.ID,
			Type:          quiz.QuestionType(q.Type),
			Text:          q.Text,
			Points:        q.Points,
			CorrectAnswer: q.CorrectAnswer,
		}
		if mq.ID == "" {
			mq.ID = uuid.NewString()
		}
		for _, o := range q.Options {
			mo := quiz.Option{ID: o.ID, Text: o.Text, Correct: o.Correct}
			if mo.ID == "" {
				mo.ID = uuid.NewString()
			}
			mq.Options = append(mq.Options, mo)
		}
		z.Questions = append(z.Questions, mq)
	}
	return z
}

func decodeQuizRequest(w http.ResponseWriter, r *http.Request) (quizRequest, bool) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// POST /quizzes
func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuizRequest(w, r)
		if !ok {
			return
		}
		z := req.toModel(uuid.NewString())
		if err := z.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := store.GetExam(r.Context(), z.ExamID); err != nil {
			writeErr(w, err)
			return
		}
		if err := store.PutQuiz(r.Context(), z); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, z)
	}
}

// PUT /quizzes/{quizID}
// Edits never touch existing attempts: their max_score was snapshotted at
// start time.
func UpdateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if _, err := store.GetQuiz(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		req, ok := decodeQuizRequest(w, r)
		if !ok {
			return
		}
		z := req.toModel(id)
		if err := z.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.PutQuiz(r.Context(), z); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// GET /quizzes/{quizID}
// Callers without quiz:view-full get the quiz with answer keys stripped.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		z, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if !rbac.Allowed(rbac.RoleFromContext(r.Context()), "quiz:view-full") {
			z = z.Sanitized()
		}
		writeJSON(w, http.StatusOK, z)
	}
}

// GET /quizzes?exam_id=...&limit=50&offset=0
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			ExamID: strings.TrimSpace(r.URL.Query().Get("exam_id")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DELETE /quizzes/{quizID}
// Cascades to every attempt against the quiz.
func DeleteQuizHandler(svc *quiz.Service, events *eventlog.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if err := svc.DeleteQuiz(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		logEvent(events, r, eventlog.TypeQuizDeleted, id,
			map[string]string{"deleted_by": rbac.SubjectFromContext(r.Context())})
		w.WriteHeader(http.StatusNoContent)
	}
}
