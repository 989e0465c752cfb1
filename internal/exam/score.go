// Package exam implements the evaluation engine: answer-key validation,
// subject mapping, scoring, and the per-question comparison report. All
// operations are pure functions over immutable inputs and are safe to call
// concurrently.
package exam

import "github.com/omrkit/omrkit/internal/model"

// Score compares a detected-answer set against an answer key. Every correct
// answer earns one point toward the total and toward its subject subtotal;
// undetected and incorrect answers earn zero and are never penalized.
//
// SubjectScores carries an entry for every declared subject, including those
// that scored zero. The key is assumed validated; a missing answer entry
// surfaces as *KeyError, and a detected entry outside 1..TotalQuestions as
// *MismatchError.
func Score(detected model.DetectedAnswerSet, key *model.AnswerKey) (model.Result, error) {
	if err := checkRange(detected, key.TotalQuestions); err != nil {
		return model.Result{}, err
	}

	result := model.Result{
		SubjectScores: make(map[string]int, len(key.Subjects)),
	}
	for _, r := range key.Subjects {
		result.SubjectScores[r.Subject] = 0
	}

	for q := 1; q <= key.TotalQuestions; q++ {
		correct, ok := key.Answers[q]
		if !ok {
			return model.Result{}, &KeyError{Question: q}
		}
		marked, ok := detected.Detected(q)
		if !ok || marked != correct {
			continue
		}
		subject, err := SubjectFor(q, key.Subjects)
		if err != nil {
			return model.Result{}, err
		}
		result.TotalScore++
		result.SubjectScores[subject]++
	}

	return result, nil
}

// checkRange rejects detected entries outside 1..total, reporting the
// smallest offending question so the error is deterministic.
func checkRange(detected model.DetectedAnswerSet, total int) error {
	bad := 0
	for q := range detected {
		if q >= 1 && q <= total {
			continue
		}
		if bad == 0 || q < bad {
			bad = q
		}
	}
	if bad != 0 {
		return &MismatchError{Question: bad, TotalQuestions: total}
	}
	return nil
}
