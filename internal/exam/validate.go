package exam

import "github.com/omrkit/omrkit/internal/model"

// ValidateKey checks an answer key once, at creation time. A key that passes
// is trusted by Score and Compare without re-validation.
//
// The subject ranges must exactly partition 1..TotalQuestions in order, with
// no gap or overlap, and the answer mapping must have an in-alphabet entry
// for every question in range.
func ValidateKey(key *model.AnswerKey) error {
	if key.TotalQuestions <= 0 {
		return &PartitionError{Reason: "total questions must be positive"}
	}
	if err := validatePartition(key.Subjects, key.TotalQuestions); err != nil {
		return err
	}
	return validateAnswers(key)
}

func validatePartition(subjects []model.SubjectRange, total int) error {
	if len(subjects) == 0 {
		return &PartitionError{Question: 1, Reason: "gap"}
	}

	seen := make(map[string]bool, len(subjects))
	next := 1
	for _, r := range subjects {
		if r.Subject == "" {
			return &PartitionError{Question: r.From, Reason: "unnamed subject range"}
		}
		if seen[r.Subject] {
			return &PartitionError{Question: r.From, Reason: "duplicate subject " + r.Subject}
		}
		seen[r.Subject] = true

		if r.To < r.From {
			return &PartitionError{Question: r.From, Reason: "empty range"}
		}
		if r.From < next {
			return &PartitionError{Question: r.From, Reason: "overlap"}
		}
		if r.From > next {
			return &PartitionError{Question: next, Reason: "gap"}
		}
		next = r.To + 1
	}
	if next != total+1 {
		if next > total+1 {
			return &PartitionError{Question: total, Reason: "overlap"}
		}
		return &PartitionError{Question: next, Reason: "gap"}
	}
	return nil
}

func validateAnswers(key *model.AnswerKey) error {
	for q := 1; q <= key.TotalQuestions; q++ {
		a, ok := key.Answers[q]
		if !ok {
			return &AnswerError{Question: q, Reason: "missing entry"}
		}
		if !key.InAlphabet(a) {
			return &AnswerError{Question: q, Answer: a, Reason: "value outside alphabet"}
		}
	}
	for q := range key.Answers {
		if q < 1 || q > key.TotalQuestions {
			return &AnswerError{Question: q, Reason: "entry outside question range"}
		}
	}
	return nil
}
