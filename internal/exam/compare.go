package exam

import "github.com/omrkit/omrkit/internal/model"

// Compare produces one entry per question in ascending order, classifying
// each as correct, incorrect, or undetected. The report is derived fresh on
// every call so it always reflects the stored detected answers and the
// immutable key; callers must not persist it.
func Compare(detected model.DetectedAnswerSet, key *model.AnswerKey) ([]model.ComparisonEntry, error) {
	if err := checkRange(detected, key.TotalQuestions); err != nil {
		return nil, err
	}

	entries := make([]model.ComparisonEntry, 0, key.TotalQuestions)
	for q := 1; q <= key.TotalQuestions; q++ {
		correct, ok := key.Answers[q]
		if !ok {
			return nil, &KeyError{Question: q}
		}
		subject, err := SubjectFor(q, key.Subjects)
		if err != nil {
			return nil, err
		}

		entry := model.ComparisonEntry{
			QuestionNumber: q,
			Subject:        subject,
			CorrectAnswer:  correct,
			Status:         model.ComparisonUndetected,
		}
		if marked, ok := detected.Detected(q); ok {
			entry.DetectedAnswer = &marked
			if marked == correct {
				entry.IsCorrect = true
				entry.Status = model.ComparisonCorrect
			} else {
				entry.Status = model.ComparisonIncorrect
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
