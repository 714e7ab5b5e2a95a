package grading_test

import (
	"context"
	"errors"
	"testing"

	"github.com/brightpath-edu/academy-api/internal/grading"
)

func TestChoiceGradingAllOrNothing(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "multiple_choice", Points: 3, AnswerKey: []string{"a", "b", "c"}}

	cases := []struct {
		name     string
		response interface{}
		correct  bool
		points   float64
	}{
		{"exact match", []string{"a", "b", "c"}, true, 3},
		{"order independent", []string{"c", "a", "b"}, true, 3},
		{"duplicates ignored", []string{"a", "a", "b", "c"}, true, 3},
		{"partial overlap scores zero", []string{"a", "b"}, false, 0},
		{"superset scores zero", []string{"a", "b", "c", "d"}, false, 0},
		{"disjoint scores zero", []string{"x"}, false, 0},
		{"empty scores zero", []string{}, false, 0},
		{"json-decoded slice", []interface{}{"a", "b", "c"}, true, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(context.Background(), q, tc.response)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Correct != tc.correct || res.Points != tc.points {
				t.Fatalf("got correct=%v points=%v, want correct=%v points=%v",
					res.Correct, res.Points, tc.correct, tc.points)
			}
		})
	}
}

func TestChoiceGradingEmptyKey(t *testing.T) {
	// A question with no correct options expects an empty selection.
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "multiple_choice", Points: 2, AnswerKey: nil}

	res, err := g.Grade(context.Background(), q, []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Correct || res.Points != 2 {
		t.Fatalf("empty selection against empty key should be correct, got %+v", res)
	}

	res, err = g.Grade(context.Background(), q, []string{"a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Correct {
		t.Fatalf("non-empty selection against empty key should be wrong")
	}
}

func TestTextGrading(t *testing.T) {
	g := grading.NewDefaultGrader()

	cases := []struct {
		name     string
		qtype    string
		key      string
		response string
		correct  bool
	}{
		{"exact", "true_false", "True", "True", true},
		{"case insensitive", "true_false", "True", "TRUE", true},
		{"whitespace trimmed", "true_false", "True", " true ", true},
		{"wrong value", "true_false", "True", "false", false},
		{"short answer casefold", "short_answer", "Photosynthesis", "photosynthesis", true},
		{"interior whitespace significant", "short_answer", "New York", "NewYork", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := grading.Q{Type: tc.qtype, Points: 1, AnswerKey: []string{tc.key}}
			res, err := g.Grade(context.Background(), q, tc.response)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Correct != tc.correct {
				t.Fatalf("grade(%q vs %q): got correct=%v, want %v", tc.response, tc.key, res.Correct, tc.correct)
			}
			if tc.correct && res.Points != 1 || !tc.correct && res.Points != 0 {
				t.Fatalf("points=%v inconsistent with correct=%v", res.Points, res.Correct)
			}
		})
	}
}

func TestShapeMismatch(t *testing.T) {
	g := grading.NewDefaultGrader()

	mc := grading.Q{Type: "multiple_choice", Points: 1, AnswerKey: []string{"a"}}
	if _, err := g.Grade(context.Background(), mc, "free text"); !errors.Is(err, grading.ErrInvalidSubmission) {
		t.Fatalf("text against multiple_choice: got %v, want ErrInvalidSubmission", err)
	}
	if _, err := g.Grade(context.Background(), mc, []interface{}{"a", 42}); !errors.Is(err, grading.ErrInvalidSubmission) {
		t.Fatalf("mixed-type slice: got %v, want ErrInvalidSubmission", err)
	}

	tf := grading.Q{Type: "true_false", Points: 1, AnswerKey: []string{"true"}}
	if _, err := g.Grade(context.Background(), tf, []string{"true"}); !errors.Is(err, grading.ErrInvalidSubmission) {
		t.Fatalf("slice against true_false: got %v, want ErrInvalidSubmission", err)
	}
}

func TestUnknownType(t *testing.T) {
	g := grading.NewDefaultGrader()
	if _, err := g.Grade(context.Background(), grading.Q{Type: "essay"}, "anything"); err == nil {
		t.Fatal("expected error for unknown question type")
	}
}
