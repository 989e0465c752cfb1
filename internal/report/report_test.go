package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/omrkit/omrkit/internal/model"
)

func init() {
	// Keep table output free of escape codes so assertions stay simple.
	color.NoColor = true
}

func testKey() *model.AnswerKey {
	return &model.AnswerKey{
		ID:             "k1",
		ExamName:       "Midterm",
		SetVersion:     "A",
		TotalQuestions: 3,
		Answers:        map[int]model.Answer{1: "A", 2: "B", 3: "C"},
		Subjects: []model.SubjectRange{
			{Subject: "Physics", From: 1, To: 2},
			{Subject: "Chemistry", From: 3, To: 3},
		},
		Alphabet: model.DefaultAlphabet,
	}
}

func mark(s string) *model.Answer {
	a := model.Answer(s)
	return &a
}

func TestWriteComparison(t *testing.T) {
	ev := &model.Evaluation{
		ID:          "e1",
		StudentName: "Asha",
		RollNumber:  "R-042",
		AnswerKeyID: "k1",
		DetectedAnswers: model.DetectedAnswerSet{
			1: mark("A"), 2: nil, 3: mark("D"),
		},
		Status: model.StatusCompleted,
		Result: &model.Result{
			TotalScore:    1,
			SubjectScores: map[string]int{"Physics": 1, "Chemistry": 0},
		},
	}

	var buf bytes.Buffer
	if err := WriteComparison(&buf, ev, testKey()); err != nil {
		t.Fatalf("WriteComparison: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Midterm (A)",
		"Asha",
		"correct",
		"incorrect",
		"undetected",
		"total: 1/3",
		"Physics: 1/2",
		"Chemistry: 0/1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteComparisonFailedEvaluation(t *testing.T) {
	ev := &model.Evaluation{
		ID:              "e2",
		StudentName:     "Ben",
		AnswerKeyID:     "k1",
		DetectedAnswers: model.DetectedAnswerSet{1: mark("A")},
		Status:          model.StatusError,
		FailureReason:   "answer key gone",
	}

	var buf bytes.Buffer
	if err := WriteComparison(&buf, ev, testKey()); err != nil {
		t.Fatalf("WriteComparison: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "status: error") || !strings.Contains(out, "answer key gone") {
		t.Errorf("expected failure summary, got:\n%s", out)
	}
}

func TestWriteComparisonOutOfRange(t *testing.T) {
	ev := &model.Evaluation{
		ID:              "e3",
		AnswerKeyID:     "k1",
		DetectedAnswers: model.DetectedAnswerSet{9: mark("A")},
		Status:          model.StatusError,
	}

	var buf bytes.Buffer
	if err := WriteComparison(&buf, ev, testKey()); err == nil {
		t.Fatal("expected error for out-of-range question")
	}
}
