// Package evaluator drives the one-shot scoring pass for a submitted sheet:
// load the evaluation, move it to processing, score it against its answer
// key, and persist the outcome. An evaluation always ends in completed with
// a result or in error with none; there is no partial state to resume, and
// retrying a failure means resubmitting under a fresh id.
package evaluator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omrkit/omrkit/internal/exam"
	"github.com/omrkit/omrkit/internal/model"
	"github.com/omrkit/omrkit/internal/store"
)

type Evaluator struct {
	store *store.Store
}

func New(s *store.Store) *Evaluator {
	return &Evaluator{store: s}
}

// Submission carries everything needed to create a pending evaluation.
type Submission struct {
	StudentName     string
	RollNumber      string
	ExamDate        string
	AnswerKeyID     string
	DetectedAnswers model.DetectedAnswerSet
}

// Submit stores a new pending evaluation for the submission and returns it.
// The referenced answer key must exist; detected answers are stored as
// received, unreadable marks included.
func (e *Evaluator) Submit(sub Submission) (*model.Evaluation, error) {
	key, err := e.store.GetAnswerKey(sub.AnswerKeyID)
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if key == nil {
		return nil, fmt.Errorf("answer key %s not found", sub.AnswerKeyID)
	}

	ev := &model.Evaluation{
		ID:              uuid.NewString(),
		StudentName:     sub.StudentName,
		RollNumber:      sub.RollNumber,
		ExamDate:        sub.ExamDate,
		AnswerKeyID:     sub.AnswerKeyID,
		DetectedAnswers: sub.DetectedAnswers,
		Status:          model.StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.store.PutEvaluation(ev); err != nil {
		return nil, fmt.Errorf("store evaluation: %w", err)
	}
	slog.Info("evaluation submitted",
		"evaluation_id", ev.ID,
		"answer_key_id", ev.AnswerKeyID,
		"student", ev.StudentName,
	)
	return ev, nil
}

// Process scores a pending evaluation. On success the stored record moves to
// completed with its result in the same write; on any failure it moves to
// error with no result and the cause is returned. A failure is never folded
// into a zero score.
func (e *Evaluator) Process(id string) (*model.Evaluation, error) {
	ev, err := e.store.GetEvaluation(id)
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	if ev == nil {
		return nil, fmt.Errorf("evaluation %s not found", id)
	}
	if !ev.Status.CanTransition(model.StatusProcessing) {
		return ev, fmt.Errorf("evaluation %s is %s, not pending", id, ev.Status)
	}

	ev.Status = model.StatusProcessing
	if err := e.store.PutEvaluation(ev); err != nil {
		return nil, fmt.Errorf("store evaluation: %w", err)
	}

	key, err := e.store.GetAnswerKey(ev.AnswerKeyID)
	if err != nil {
		return e.fail(ev, fmt.Errorf("get answer key: %w", err))
	}
	if key == nil {
		return e.fail(ev, fmt.Errorf("answer key %s not found", ev.AnswerKeyID))
	}

	result, err := exam.Score(ev.DetectedAnswers, key)
	if err != nil {
		return e.fail(ev, fmt.Errorf("score: %w", err))
	}

	now := time.Now().UTC()
	ev.Status = model.StatusCompleted
	ev.Result = &result
	ev.CompletedAt = &now
	if err := e.store.PutEvaluation(ev); err != nil {
		return nil, fmt.Errorf("store evaluation: %w", err)
	}

	slog.Info("evaluation completed",
		"evaluation_id", ev.ID,
		"total_score", result.TotalScore,
		"total_questions", key.TotalQuestions,
	)
	return ev, nil
}

// Evaluate submits and immediately processes in one awaited call.
func (e *Evaluator) Evaluate(sub Submission) (*model.Evaluation, error) {
	ev, err := e.Submit(sub)
	if err != nil {
		return nil, err
	}
	return e.Process(ev.ID)
}

func (e *Evaluator) fail(ev *model.Evaluation, cause error) (*model.Evaluation, error) {
	now := time.Now().UTC()
	ev.Status = model.StatusError
	ev.Result = nil
	ev.FailureReason = cause.Error()
	ev.CompletedAt = &now
	if err := e.store.PutEvaluation(ev); err != nil {
		return nil, fmt.Errorf("store failed evaluation: %w (cause: %v)", err, cause)
	}
	slog.Error("evaluation failed", "evaluation_id", ev.ID, "error", cause)
	return ev, cause
}
