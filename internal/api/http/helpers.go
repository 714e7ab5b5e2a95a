package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/brightpath-edu/academy-api/internal/eventlog"
	"github.com/brightpath-edu/academy-api/internal/quiz"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the domain taxonomy to status codes. Ownership misses come
// back as 404 like plain absence; anything outside the taxonomy is an
// internal storage failure and stays opaque to the caller.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, quiz.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, quiz.ErrInvalidState):
		http.Error(w, "attempt not in progress", http.StatusConflict)
	case errors.Is(err, quiz.ErrInvalidSubmission):
		http.Error(w, "invalid submission", http.StatusUnprocessableEntity)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// logEvent appends to the audit log; failures are logged, never surfaced.
func logEvent(events *eventlog.Repo, r *http.Request, typ, key string, data interface{}) {
	if events == nil {
		return
	}
	if err := events.Append(r.Context(), typ, key, data); err != nil {
		log.Printf("eventlog append %s: %v", typ, err)
	}
}
