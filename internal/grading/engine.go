package grading

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidSubmission is returned when a response payload's shape does not
// match the question type (e.g. free text against a multiple-choice
// question).
var ErrInvalidSubmission = errors.New("grading: submission shape does not match question type")

// Q is the minimal view of a question needed for grading. AnswerKey holds
// the correct option ids for choice questions, or a single expected string
// for the text types.
type Q struct {
	Type      string
	Points    float64
	AnswerKey []string
}

// Result is the outcome of grading a single response. Selected/Text echo the
// submission so callers can persist exactly what was graded.
type Result struct {
	Correct  bool
	Points   float64
	Selected []string
	Text     string
}

// Strategy grades a single question type.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy. Implementations
// are side-effect-free and safe for concurrent use.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("grading: no strategy for question type %q", q.Type)
	}
	return s.Grade(ctx, q, response)
}

// NewDefaultGrader installs the built-in strategies: all-or-nothing choice
// grading and trimmed, case-insensitive text grading. No partial credit, no
// negative marking.
func NewDefaultGrader() Grader {
	text := textStrategy{}
	return &defaultGrader{
		strategies: map[string]Strategy{
			"multiple_choice": choiceStrategy{},
			"true_false":      text,
			"short_answer":    text,
		},
	}
}

type choiceStrategy struct{}

// Grade awards full points only when the submitted option-id set equals the
// answer key as a set: order-independent, duplicate-insensitive, any partial
// overlap scores zero.
func (choiceStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	sel, ok := toStringSlice(response)
	if !ok {
		return Result{}, ErrInvalidSubmission
	}
	res := Result{Selected: sel}
	if setEqual(toSet(sel), toSet(q.AnswerKey)) {
		res.Correct = true
		res.Points = q.Points
	}
	return res, nil
}

type textStrategy struct{}

func (textStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	s, ok := response.(string)
	if !ok {
		return Result{}, ErrInvalidSubmission
	}
	res := Result{Text: s}
	if len(q.AnswerKey) > 0 && textEqual(s, q.AnswerKey[0]) {
		res.Correct = true
		res.Points = q.Points
	}
	return res, nil
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
