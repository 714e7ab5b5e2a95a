package quiz

import "testing"

func TestQuestionValidateEnforcesVariantShape(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"valid multiple choice", Question{ID: "q1", Type: MultipleChoice, Text: "x", Points: 1,
			Options: []Option{{ID: "a", Text: "A", Correct: true}}}, true},
		{"multiple choice with zero correct options", Question{ID: "q1", Type: MultipleChoice, Text: "x", Points: 1,
			Options: []Option{{ID: "a", Text: "A"}}}, true},
		{"multiple choice with correct_answer", Question{ID: "q1", Type: MultipleChoice, Text: "x", Points: 1,
			Options: []Option{{ID: "a", Text: "A"}}, CorrectAnswer: "A"}, false},
		{"duplicate option ids", Question{ID: "q1", Type: MultipleChoice, Text: "x", Points: 1,
			Options: []Option{{ID: "a", Text: "A"}, {ID: "a", Text: "B"}}}, false},
		{"valid true/false", Question{ID: "q2", Type: TrueFalse, Text: "x", Points: 1, CorrectAnswer: "true"}, true},
		{"true/false with options", Question{ID: "q2", Type: TrueFalse, Text: "x", Points: 1,
			CorrectAnswer: "true", Options: []Option{{ID: "a", Text: "A"}}}, false},
		{"true/false without key", Question{ID: "q2", Type: TrueFalse, Text: "x", Points: 1}, false},
		{"valid short answer", Question{ID: "q3", Type: ShortAnswer, Text: "x", Points: 0, CorrectAnswer: "ok"}, true},
		{"negative points", Question{ID: "q3", Type: ShortAnswer, Text: "x", Points: -1, CorrectAnswer: "ok"}, false},
		{"unknown type", Question{ID: "q4", Type: "essay", Text: "x", Points: 1}, false},
		{"missing id", Question{Type: TrueFalse, Text: "x", Points: 1, CorrectAnswer: "true"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestQuizValidateRejectsDuplicateQuestionIDs(t *testing.T) {
	z := Quiz{
		Title: "t",
		Questions: []Question{
			{ID: "q1", Type: TrueFalse, Text: "a", Points: 1, CorrectAnswer: "true"},
			{ID: "q1", Type: TrueFalse, Text: "b", Points: 1, CorrectAnswer: "false"},
		},
	}
	if err := z.Validate(); err == nil {
		t.Fatal("expected duplicate question id error")
	}
}

func TestSanitizedStripsAnswerKeys(t *testing.T) {
	z := twoQuestionQuiz("quiz-1", true)
	s := z.Sanitized()

	for _, q := range s.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("question %s leaked correct_answer", q.ID)
		}
		for _, o := range q.Options {
			if o.Correct {
				t.Fatalf("question %s leaked correct option %s", q.ID, o.ID)
			}
		}
	}
	// The original is untouched.
	if len(z.Questions[0].CorrectOptionIDs()) != 1 || z.Questions[1].CorrectAnswer != "true" {
		t.Fatal("sanitize mutated the source quiz")
	}
}

func TestPutAnswerPreservesInsertionOrder(t *testing.T) {
	var a Attempt
	a.PutAnswer(Answer{QuestionID: "q1", PointsAwarded: 1})
	a.PutAnswer(Answer{QuestionID: "q2", PointsAwarded: 2})
	a.PutAnswer(Answer{QuestionID: "q1", PointsAwarded: 0}) // replace

	if len(a.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(a.Answers))
	}
	if a.Answers[0].QuestionID != "q1" || a.Answers[1].QuestionID != "q2" {
		t.Fatalf("order not preserved: %+v", a.Answers)
	}
	if a.Answers[0].PointsAwarded != 0 {
		t.Fatal("replacement did not take effect")
	}
	if a.TotalPoints() != 2 {
		t.Fatalf("total = %v, want 2", a.TotalPoints())
	}
}
