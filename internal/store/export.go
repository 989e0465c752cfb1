package store

import (
	"fmt"
	"time"

	"github.com/omrkit/omrkit/internal/exam"
	"github.com/omrkit/omrkit/internal/model"
)

// ExportForKey builds export-ready results for every evaluation scored
// against the given answer key. Comparisons are derived fresh from the
// stored detected answers; nothing derived is read back from disk.
func (s *Store) ExportForKey(keyID string) (*model.ResultExport, error) {
	key, err := s.GetAnswerKey(keyID)
	if err != nil {
		return nil, fmt.Errorf("get answer key %s: %w", keyID, err)
	}
	if key == nil {
		return nil, fmt.Errorf("answer key %s not found", keyID)
	}

	evs, err := s.ListEvaluations()
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	export := &model.ResultExport{
		ExamName:   key.ExamName,
		SetVersion: key.SetVersion,
		KeyID:      key.ID,
		ExportedAt: time.Now(),
	}

	for _, ev := range evs {
		if ev.AnswerKeyID != keyID {
			continue
		}

		se := model.StudentExport{
			EvaluationID: ev.ID,
			StudentName:  ev.StudentName,
			RollNumber:   ev.RollNumber,
			ExamDate:     ev.ExamDate,
			Status:       ev.Status,
			SubmittedAt:  ev.CreatedAt,
			CompletedAt:  ev.CompletedAt,
		}
		if ev.Result != nil {
			total := ev.Result.TotalScore
			se.TotalScore = &total
			se.SubjectScores = ev.Result.SubjectScores

			comparison, err := exam.Compare(ev.DetectedAnswers, key)
			if err != nil {
				return nil, fmt.Errorf("compare evaluation %s: %w", ev.ID, err)
			}
			se.Comparison = comparison
		}

		export.Evaluations = append(export.Evaluations, se)
	}
	export.NumSheets = len(export.Evaluations)

	return export, nil
}
