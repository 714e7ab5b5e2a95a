package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-edu/academy-api/internal/eventlog"
	"github.com/brightpath-edu/academy-api/internal/quiz"
	"github.com/brightpath-edu/academy-api/internal/rbac"
)

// POST /quizzes/{quizID}/attempts
// Idempotent: starting while an attempt is already in progress returns the
// existing attempt.
func StartAttemptHandler(svc *quiz.Service, events *eventlog.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		student := rbac.SubjectFromContext(r.Context())
		a, err := svc.Start(r.Context(), student, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		logEvent(events, r, eventlog.TypeAttemptStarted, a.ID,
			map[string]string{"quiz_id": a.QuizID, "student_id": a.StudentID})
		writeJSON(w, http.StatusOK, a)
	}
}

type submitAnswerRequest struct {
	QuestionID        string   `json:"question_id" validate:"required"`
	SelectedOptionIDs []string `json:"selected_option_ids"`
	Text              *string  `json:"text"`
}

// POST /attempts/{attemptID}/answers
// Exactly one of selected_option_ids / text must be present; it must match
// the question type or the submission is rejected.
func SubmitAnswerHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		student := rbac.SubjectFromContext(r.Context())

		var req submitAnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var payload interface{}
		switch {
		case req.SelectedOptionIDs != nil && req.Text == nil:
			payload = req.SelectedOptionIDs
		case req.Text != nil && req.SelectedOptionIDs == nil:
			payload = *req.Text
		default:
			writeErr(w, quiz.ErrInvalidSubmission)
			return
		}

		ans, score, err := svc.SubmitAnswer(r.Context(), attemptID, student, req.QuestionID, payload)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"answer": ans,
			"score":  score,
		})
	}
}

// POST /attempts/{attemptID}/complete
func CompleteAttemptHandler(svc *quiz.Service, events *eventlog.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		student := rbac.SubjectFromContext(r.Context())
		sum, err := svc.Complete(r.Context(), attemptID, student)
		if err != nil {
			writeErr(w, err)
			return
		}
		logEvent(events, r, eventlog.TypeAttemptCompleted, attemptID,
			map[string]interface{}{"student_id": student, "score": sum.Score, "max_score": sum.MaxScore})
		writeJSON(w, http.StatusOK, sum)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		student := rbac.SubjectFromContext(r.Context())
		a, err := svc.GetAttempt(r.Context(), attemptID, student)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts?quiz_id=...&user_id=...&status=...&limit=50&offset=0
// Callers without attempt:view-all are scoped to their own attempts.
func ListAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		studentID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if !rbac.Allowed(role, "attempt:view-all") {
			studentID = sub
		}

		list, err := svc.ListAttempts(r.Context(), quiz.AttemptListOpts{
			QuizID:    strings.TrimSpace(r.URL.Query().Get("quiz_id")),
			StudentID: studentID,
			Status:    quiz.AttemptStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
