// Package ingest turns an instructor's answer-key file into a validated
// AnswerKey. Keys are validated exactly once here; downstream scoring trusts
// the result and a bad file is reported with question-level detail instead
// of being silently corrected.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omrkit/omrkit/internal/exam"
	"github.com/omrkit/omrkit/internal/model"
)

// KeySpec collects everything needed to build one answer key.
type KeySpec struct {
	ExamName       string
	SetVersion     string
	TotalQuestions int
	Answers        map[int]model.Answer
	Subjects       []model.SubjectRange
	Alphabet       []model.Answer // empty means the default A-D
}

// Build assembles and validates an answer key, assigning it a fresh id.
func Build(spec KeySpec) (*model.AnswerKey, error) {
	alphabet := spec.Alphabet
	if len(alphabet) == 0 {
		alphabet = model.DefaultAlphabet
	}
	key := &model.AnswerKey{
		ID:             uuid.NewString(),
		ExamName:       spec.ExamName,
		SetVersion:     spec.SetVersion,
		TotalQuestions: spec.TotalQuestions,
		Answers:        spec.Answers,
		Subjects:       spec.Subjects,
		Alphabet:       alphabet,
		CreatedAt:      time.Now().UTC(),
	}
	if err := exam.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("validate answer key: %w", err)
	}
	return key, nil
}

// ParseAnswersCSV reads "question,answer" rows. A header row is skipped if
// present, answers are upper-cased, and a duplicate question is an error.
func ParseAnswersCSV(r io.Reader) (map[int]model.Answer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	answers := make(map[int]model.Answer)
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read answer row: %w", err)
		}
		line++

		qField := strings.TrimSpace(record[0])
		if line == 1 && !isNumeric(qField) {
			continue // header
		}
		q, err := strconv.Atoi(qField)
		if err != nil {
			return nil, fmt.Errorf("line %d: question number %q is not a number", line, qField)
		}
		if _, dup := answers[q]; dup {
			return nil, fmt.Errorf("line %d: duplicate entry for question %d", line, q)
		}
		answers[q] = model.Answer(strings.ToUpper(strings.TrimSpace(record[1])))
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("answer file contains no entries")
	}
	return answers, nil
}

// ParseSubjectSpecs parses range flags of the form "Physics=1-20" in order.
func ParseSubjectSpecs(specs []string) ([]model.SubjectRange, error) {
	ranges := make([]model.SubjectRange, 0, len(specs))
	for _, spec := range specs {
		name, bounds, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("subject %q: want NAME=FROM-TO", spec)
		}
		fromStr, toStr, ok := strings.Cut(bounds, "-")
		if !ok {
			return nil, fmt.Errorf("subject %q: want NAME=FROM-TO", spec)
		}
		from, err := strconv.Atoi(strings.TrimSpace(fromStr))
		if err != nil {
			return nil, fmt.Errorf("subject %q: bad start %q", spec, fromStr)
		}
		to, err := strconv.Atoi(strings.TrimSpace(toStr))
		if err != nil {
			return nil, fmt.Errorf("subject %q: bad end %q", spec, toStr)
		}
		ranges = append(ranges, model.SubjectRange{
			Subject: strings.TrimSpace(name),
			From:    from,
			To:      to,
		})
	}
	return ranges, nil
}

// LoadKeyFile reads a CSV answer file from disk and builds a validated key.
// When totalQuestions is zero it is taken from the number of answer rows.
func LoadKeyFile(path string, examName, setVersion string, totalQuestions int, subjectSpecs []string) (*model.AnswerKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open answer file: %w", err)
	}
	defer f.Close()

	answers, err := ParseAnswersCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if totalQuestions == 0 {
		totalQuestions = len(answers)
	}

	subjects, err := ParseSubjectSpecs(subjectSpecs)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		// No breakdown requested; the whole paper is one subject.
		subjects = []model.SubjectRange{{Subject: "Total", From: 1, To: totalQuestions}}
	}

	return Build(KeySpec{
		ExamName:       examName,
		SetVersion:     setVersion,
		TotalQuestions: totalQuestions,
		Answers:        answers,
		Subjects:       subjects,
	})
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
