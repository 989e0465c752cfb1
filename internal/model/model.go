package model

import "time"

// Answer is a single choice letter from a key's answer alphabet.
type Answer string

const (
	AnswerA Answer = "A"
	AnswerB Answer = "B"
	AnswerC Answer = "C"
	AnswerD Answer = "D"
)

// DefaultAlphabet is the standard four-choice bubble alphabet.
var DefaultAlphabet = []Answer{AnswerA, AnswerB, AnswerC, AnswerD}

// SubjectRange assigns the inclusive question range From..To to one subject.
type SubjectRange struct {
	Subject string `json:"subject"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

// Contains reports whether question q falls inside the range.
func (r SubjectRange) Contains(q int) bool {
	return q >= r.From && q <= r.To
}

// AnswerKey is the canonical correct-answer mapping for one exam variant.
// A key is immutable once created; a corrected key gets a new ID.
type AnswerKey struct {
	ID             string         `json:"id"`
	ExamName       string         `json:"exam_name"`
	SetVersion     string         `json:"set_version"`
	TotalQuestions int            `json:"total_questions"`
	Answers        map[int]Answer `json:"answers"`
	Subjects       []SubjectRange `json:"subjects"`
	Alphabet       []Answer       `json:"alphabet"`
	CreatedAt      time.Time      `json:"created_at"`
}

// InAlphabet reports whether a is one of the key's allowed answer values.
func (k *AnswerKey) InAlphabet(a Answer) bool {
	for _, v := range k.Alphabet {
		if v == a {
			return true
		}
	}
	return false
}

// DetectedAnswerSet maps question numbers to the answer read off a sheet.
// A nil value or a missing entry means the bubble was unreadable; the
// recognition side never substitutes a guess.
type DetectedAnswerSet map[int]*Answer

// Detected returns the answer for question q and whether one was read.
func (d DetectedAnswerSet) Detected(q int) (Answer, bool) {
	a, ok := d[q]
	if !ok || a == nil {
		return "", false
	}
	return *a, true
}

// Result holds the computed score for one evaluation.
type Result struct {
	TotalScore    int            `json:"total_score"`
	SubjectScores map[string]int `json:"subject_scores"`
}

// EvaluationStatus represents the processing state of an evaluation.
type EvaluationStatus string

const (
	StatusPending    EvaluationStatus = "pending"
	StatusProcessing EvaluationStatus = "processing"
	StatusCompleted  EvaluationStatus = "completed"
	StatusError      EvaluationStatus = "error"
)

// CanTransition reports whether moving from s to next is a valid forward
// step. Progression is strictly pending -> processing -> completed|error.
func (s EvaluationStatus) CanTransition(next EvaluationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusError
	default:
		return false
	}
}

// Evaluation is one student's submitted sheet plus its computed result.
// Result stays nil until scoring completes; status and result are always
// written together.
type Evaluation struct {
	ID              string            `json:"id"`
	StudentName     string            `json:"student_name"`
	RollNumber      string            `json:"roll_number"`
	ExamDate        string            `json:"exam_date"`
	AnswerKeyID     string            `json:"answer_key_id"`
	DetectedAnswers DetectedAnswerSet `json:"detected_answers"`
	Result          *Result           `json:"result,omitempty"`
	Status          EvaluationStatus  `json:"status"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// ComparisonStatus classifies one question in a comparison report.
type ComparisonStatus string

const (
	ComparisonCorrect    ComparisonStatus = "correct"
	ComparisonIncorrect  ComparisonStatus = "incorrect"
	ComparisonUndetected ComparisonStatus = "undetected"
)

// ComparisonEntry is the per-question audit record of detected vs. correct.
// It is derived on demand from an evaluation and its key, never stored.
type ComparisonEntry struct {
	QuestionNumber int              `json:"question_number"`
	Subject        string           `json:"subject"`
	DetectedAnswer *Answer          `json:"detected_answer"`
	CorrectAnswer  Answer           `json:"correct_answer"`
	IsCorrect      bool             `json:"is_correct"`
	Status         ComparisonStatus `json:"status"`
}
