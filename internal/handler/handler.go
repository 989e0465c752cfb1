// Package handler exposes the evaluation engine over a JSON HTTP API. The
// handlers are a thin collaborator: parse, validate, delegate, render.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/omrkit/omrkit/internal/evaluator"
	"github.com/omrkit/omrkit/internal/exam"
	"github.com/omrkit/omrkit/internal/ingest"
	"github.com/omrkit/omrkit/internal/model"
	"github.com/omrkit/omrkit/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	eval     *evaluator.Evaluator
	validate *validator.Validate
}

// New creates a new Handler.
func New(s *store.Store) *Handler {
	return &Handler{
		store:    s,
		eval:     evaluator.New(s),
		validate: validator.New(),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/keys", h.handleCreateKey)
	r.Get("/keys", h.handleListKeys)
	r.Get("/keys/{keyID}", h.handleGetKey)
	r.Post("/evaluations", h.handleSubmitEvaluation)
	r.Get("/evaluations", h.handleListEvaluations)
	r.Get("/evaluations/{evalID}", h.handleGetEvaluation)
	r.Get("/evaluations/{evalID}/comparison", h.handleComparison)
}

type subjectRangeRequest struct {
	Subject string `json:"subject" validate:"required"`
	From    int    `json:"from" validate:"required,gt=0"`
	To      int    `json:"to" validate:"required,gt=0"`
}

type createKeyRequest struct {
	ExamName       string                `json:"exam_name" validate:"required"`
	SetVersion     string                `json:"set_version"`
	TotalQuestions int                   `json:"total_questions" validate:"required,gt=0"`
	Answers        map[int]model.Answer  `json:"answers" validate:"required"`
	Subjects       []subjectRangeRequest `json:"subjects" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if !h.decode(w, r, &req) {
		return
	}

	subjects := make([]model.SubjectRange, 0, len(req.Subjects))
	for _, s := range req.Subjects {
		subjects = append(subjects, model.SubjectRange{Subject: s.Subject, From: s.From, To: s.To})
	}

	key, err := ingest.Build(ingest.KeySpec{
		ExamName:       req.ExamName,
		SetVersion:     req.SetVersion,
		TotalQuestions: req.TotalQuestions,
		Answers:        req.Answers,
		Subjects:       subjects,
	})
	if err != nil {
		writeError(w, keyFailureStatus(err), err.Error())
		return
	}

	if err := h.store.PutAnswerKey(key); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("answer key created", "key_id", key.ID, "exam", key.ExamName, "questions", key.TotalQuestions)
	writeJSON(w, http.StatusCreated, key)
}

func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAnswerKeys()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *Handler) handleGetKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.store.GetAnswerKey(chi.URLParam(r, "keyID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "answer key not found")
		return
	}
	writeJSON(w, http.StatusOK, key)
}

type submitEvaluationRequest struct {
	StudentName     string                  `json:"student_name" validate:"required"`
	RollNumber      string                  `json:"roll_number" validate:"required"`
	ExamDate        string                  `json:"exam_date"`
	AnswerKeyID     string                  `json:"answer_key_id" validate:"required"`
	DetectedAnswers model.DetectedAnswerSet `json:"detected_answers" validate:"required"`
}

func (h *Handler) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var req submitEvaluationRequest
	if !h.decode(w, r, &req) {
		return
	}

	ev, err := h.eval.Evaluate(evaluator.Submission{
		StudentName:     req.StudentName,
		RollNumber:      req.RollNumber,
		ExamDate:        req.ExamDate,
		AnswerKeyID:     req.AnswerKeyID,
		DetectedAnswers: req.DetectedAnswers,
	})
	if err != nil {
		if ev == nil {
			// Nothing was stored; the submission itself was rejected.
			status := http.StatusInternalServerError
			if strings.Contains(err.Error(), "not found") {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		// The evaluation exists in the error state; hand it back so the
		// caller can see why and resubmit under a fresh id.
		writeJSON(w, http.StatusUnprocessableEntity, ev)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	evs, err := h.store.ListEvaluations()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	ev, err := h.store.GetEvaluation(chi.URLParam(r, "evalID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handler) handleComparison(w http.ResponseWriter, r *http.Request) {
	ev, err := h.store.GetEvaluation(chi.URLParam(r, "evalID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}

	key, err := h.store.GetAnswerKey(ev.AnswerKeyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "answer key not found")
		return
	}

	entries, err := exam.Compare(ev.DetectedAnswers, key)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// decode parses the JSON body into dst and runs struct validation, writing
// the error response itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func keyFailureStatus(err error) int {
	var pErr *exam.PartitionError
	var aErr *exam.AnswerError
	if errors.As(err, &pErr) || errors.As(err, &aErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
