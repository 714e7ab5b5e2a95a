package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-edu/academy-api/internal/quiz"
)

// GET /quizzes/{quizID}/results
// One row per completed attempt, completion time ascending. A student with
// two completed attempts appears twice.
func ResultsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Results(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
