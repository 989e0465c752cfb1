package exam

import (
	"fmt"

	"github.com/omrkit/omrkit/internal/model"
)

// ConfigError reports a question that no subject range covers. A validated
// key can never produce this; seeing it means the key bypassed validation.
type ConfigError struct {
	Question int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("no subject range covers question %d", e.Question)
}

// PartitionError reports subject ranges that do not exactly partition the
// question space.
type PartitionError struct {
	Question int    // first question where the partition breaks
	Reason   string // "gap", "overlap", or a structural problem
}

func (e *PartitionError) Error() string {
	if e.Question > 0 {
		return fmt.Sprintf("subject ranges: %s at question %d", e.Reason, e.Question)
	}
	return "subject ranges: " + e.Reason
}

// AnswerError reports an answer mapping that is incomplete or contains a
// value outside the key's alphabet.
type AnswerError struct {
	Question int
	Answer   model.Answer
	Reason   string
}

func (e *AnswerError) Error() string {
	if e.Answer != "" {
		return fmt.Sprintf("answer key: %s for question %d: %q", e.Reason, e.Question, e.Answer)
	}
	return fmt.Sprintf("answer key: %s for question %d", e.Reason, e.Question)
}

// KeyError reports a key whose answer mapping is missing an entry at scoring
// time, meaning the key was never validated.
type KeyError struct {
	Question int
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("answer key has no entry for question %d", e.Question)
}

// MismatchError reports a detected-answer set that references a question
// outside the key's range. This is a caller bug and aborts scoring.
type MismatchError struct {
	Question       int
	TotalQuestions int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("detected answers reference question %d, key has 1..%d",
		e.Question, e.TotalQuestions)
}
