package store

import (
	"testing"
	"time"

	"github.com/omrkit/omrkit/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAnswerKey(id string) *model.AnswerKey {
	return &model.AnswerKey{
		ID:             id,
		ExamName:       "Midterm",
		SetVersion:     "A",
		TotalQuestions: 2,
		Answers:        map[int]model.Answer{1: "A", 2: "B"},
		Subjects: []model.SubjectRange{
			{Subject: "Physics", From: 1, To: 1},
			{Subject: "Chemistry", From: 2, To: 2},
		},
		Alphabet:  model.DefaultAlphabet,
		CreatedAt: time.Now().UTC(),
	}
}

func markOf(s string) *model.Answer {
	a := model.Answer(s)
	return &a
}

func TestRawKeyValue(t *testing.T) {
	s := newTestStore(t)

	// Absent key returns nil, nil.
	v, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil value, got %q", v)
	}

	if err := s.Set("k1", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err = s.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "one" {
		t.Errorf("expected 'one', got %q", v)
	}

	// Overwrite.
	if err := s.Set("k1", []byte("two")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, _ = s.Get("k1")
	if string(v) != "two" {
		t.Errorf("expected 'two', got %q", v)
	}
}

func TestGetByPrefix(t *testing.T) {
	s := newTestStore(t)

	for _, kv := range []struct{ k, v string }{
		{"evaluation_b", "eb"},
		{"evaluation_a", "ea"},
		{"answer_key_x", "kx"},
	} {
		if err := s.Set(kv.k, []byte(kv.v)); err != nil {
			t.Fatalf("Set %s: %v", kv.k, err)
		}
	}

	values, err := s.GetByPrefix("evaluation_")
	if err != nil {
		t.Fatalf("GetByPrefix: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	// Ordered by key.
	if string(values[0]) != "ea" || string(values[1]) != "eb" {
		t.Errorf("unexpected order: %q, %q", values[0], values[1])
	}

	// Namespaces do not leak into each other.
	values, err = s.GetByPrefix("answer_key_")
	if err != nil {
		t.Fatalf("GetByPrefix: %v", err)
	}
	if len(values) != 1 || string(values[0]) != "kx" {
		t.Errorf("expected only kx, got %d values", len(values))
	}
}

func TestAnswerKeyRoundTrip(t *testing.T) {
	s := newTestStore(t)

	// Absent id.
	got, err := s.GetAnswerKey("nope")
	if err != nil {
		t.Fatalf("GetAnswerKey: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing key")
	}

	key := testAnswerKey("k1")
	if err := s.PutAnswerKey(key); err != nil {
		t.Fatalf("PutAnswerKey: %v", err)
	}

	got, err = s.GetAnswerKey("k1")
	if err != nil {
		t.Fatalf("GetAnswerKey: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored key")
	}
	if got.ExamName != "Midterm" || got.TotalQuestions != 2 {
		t.Errorf("unexpected key: %+v", got)
	}
	if got.Answers[1] != "A" || got.Answers[2] != "B" {
		t.Errorf("answers did not round-trip: %v", got.Answers)
	}
	if len(got.Subjects) != 2 || got.Subjects[0].Subject != "Physics" {
		t.Errorf("subjects did not round-trip: %v", got.Subjects)
	}

	keys, err := s.ListAnswerKeys()
	if err != nil {
		t.Fatalf("ListAnswerKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
}

func TestEvaluationRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ev := &model.Evaluation{
		ID:          "e1",
		StudentName: "Asha",
		RollNumber:  "R-042",
		ExamDate:    "2026-08-01",
		AnswerKeyID: "k1",
		DetectedAnswers: model.DetectedAnswerSet{
			1: markOf("A"),
			2: nil,
		},
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutEvaluation(ev); err != nil {
		t.Fatalf("PutEvaluation: %v", err)
	}

	got, err := s.GetEvaluation("e1")
	if err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored evaluation")
	}
	if got.Status != model.StatusPending || got.Result != nil {
		t.Errorf("fresh evaluation should be pending without result: %+v", got)
	}
	if a, ok := got.DetectedAnswers.Detected(1); !ok || a != "A" {
		t.Errorf("Q1 answer did not round-trip: %v", got.DetectedAnswers)
	}
	// Explicit null survives storage as an undetected marker.
	if _, ok := got.DetectedAnswers.Detected(2); ok {
		t.Error("Q2 should remain undetected after round-trip")
	}

	// Completing overwrites status and result together.
	got.Status = model.StatusCompleted
	got.Result = &model.Result{TotalScore: 1, SubjectScores: map[string]int{"Physics": 1}}
	now := time.Now().UTC()
	got.CompletedAt = &now
	if err := s.PutEvaluation(got); err != nil {
		t.Fatalf("PutEvaluation update: %v", err)
	}

	updated, err := s.GetEvaluation("e1")
	if err != nil {
		t.Fatalf("GetEvaluation after update: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %q", updated.Status)
	}
	if updated.Result == nil || updated.Result.TotalScore != 1 {
		t.Errorf("result did not persist: %+v", updated.Result)
	}
}

func TestListEvaluations(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		ev := &model.Evaluation{ID: id, AnswerKeyID: "k", Status: model.StatusPending}
		if err := s.PutEvaluation(ev); err != nil {
			t.Fatalf("PutEvaluation %s: %v", id, err)
		}
	}

	evs, err := s.ListEvaluations()
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("expected 3 evaluations, got %d", len(evs))
	}
	if evs[0].ID != "a" || evs[1].ID != "b" || evs[2].ID != "c" {
		t.Errorf("evaluations not ordered by id: %v", []string{evs[0].ID, evs[1].ID, evs[2].ID})
	}
}

func TestExportForKey(t *testing.T) {
	s := newTestStore(t)

	key := testAnswerKey("k1")
	if err := s.PutAnswerKey(key); err != nil {
		t.Fatalf("PutAnswerKey: %v", err)
	}

	completed := &model.Evaluation{
		ID:          "e1",
		StudentName: "Asha",
		AnswerKeyID: "k1",
		DetectedAnswers: model.DetectedAnswerSet{
			1: markOf("A"),
			2: markOf("C"),
		},
		Status: model.StatusCompleted,
		Result: &model.Result{TotalScore: 1, SubjectScores: map[string]int{"Physics": 1, "Chemistry": 0}},
	}
	failed := &model.Evaluation{
		ID:          "e2",
		StudentName: "Ben",
		AnswerKeyID: "k1",
		Status:      model.StatusError,
	}
	other := &model.Evaluation{ID: "e3", AnswerKeyID: "k2", Status: model.StatusPending}
	for _, ev := range []*model.Evaluation{completed, failed, other} {
		if err := s.PutEvaluation(ev); err != nil {
			t.Fatalf("PutEvaluation %s: %v", ev.ID, err)
		}
	}

	export, err := s.ExportForKey("k1")
	if err != nil {
		t.Fatalf("ExportForKey: %v", err)
	}
	if export.NumSheets != 2 {
		t.Fatalf("expected 2 sheets, got %d", export.NumSheets)
	}
	if export.ExamName != "Midterm" || export.KeyID != "k1" {
		t.Errorf("unexpected export header: %+v", export)
	}

	var scored, errored *model.StudentExport
	for i := range export.Evaluations {
		switch export.Evaluations[i].EvaluationID {
		case "e1":
			scored = &export.Evaluations[i]
		case "e2":
			errored = &export.Evaluations[i]
		}
	}
	if scored == nil || errored == nil {
		t.Fatal("expected both evaluations for k1 in export")
	}
	if scored.TotalScore == nil || *scored.TotalScore != 1 {
		t.Errorf("scored sheet total = %v, want 1", scored.TotalScore)
	}
	if len(scored.Comparison) != 2 {
		t.Errorf("expected 2 comparison entries, got %d", len(scored.Comparison))
	}
	if errored.TotalScore != nil || errored.Comparison != nil {
		t.Errorf("failed sheet must carry no score or comparison: %+v", errored)
	}

	// Unknown key id is an error.
	if _, err := s.ExportForKey("missing"); err == nil {
		t.Error("expected error for unknown key id")
	}
}
