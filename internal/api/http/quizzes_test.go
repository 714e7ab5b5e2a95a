package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-edu/academy-api/internal/quiz"
)

func quizReader(store quiz.Store, sub, role string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(asIdentity(sub, role))
	r.Get("/quizzes/{quizID}", GetQuizHandler(store))
	return r
}

// Answer-key visibility follows the quiz:view-full permission, not a
// hardcoded role list.
func TestGetQuizVisibilityByRole(t *testing.T) {
	store := quiz.NewMemoryStore()
	seedQuiz(t, store)

	w := do(t, quizReader(store, "stu-1", "student"), "GET", "/quizzes/quiz-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("student get: status %d, body %s", w.Code, w.Body.String())
	}
	var z quiz.Quiz
	if err := json.Unmarshal(w.Body.Bytes(), &z); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	for _, q := range z.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("question %s leaked correct answer %q to a student", q.ID, q.CorrectAnswer)
		}
		for _, o := range q.Options {
			if o.Correct {
				t.Fatalf("question %s leaked correct option %s to a student", q.ID, o.ID)
			}
		}
	}

	for _, role := range []string{"teacher", "admin"} {
		w = do(t, quizReader(store, "staff-1", role), "GET", "/quizzes/quiz-1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s get: status %d, body %s", role, w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), &z); err != nil {
			t.Fatalf("decode quiz: %v", err)
		}
		if len(z.Questions[0].CorrectOptionIDs()) != 1 {
			t.Fatalf("%s view lost the q1 answer key: %+v", role, z.Questions[0])
		}
		if z.Questions[1].CorrectAnswer != "true" {
			t.Fatalf("%s view lost the q2 answer key: %+v", role, z.Questions[1])
		}
	}
}
