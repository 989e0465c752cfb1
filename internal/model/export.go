package model

import "time"

// ResultExport is the top-level JSON structure for exam result export.
type ResultExport struct {
	ExamName    string          `json:"exam_name"`
	SetVersion  string          `json:"set_version"`
	KeyID       string          `json:"key_id"`
	NumSheets   int             `json:"num_sheets"`
	ExportedAt  time.Time       `json:"exported_at"`
	Evaluations []StudentExport `json:"evaluations"`
}

// StudentExport holds one evaluation's data for export.
type StudentExport struct {
	EvaluationID  string            `json:"evaluation_id"`
	StudentName   string            `json:"student_name"`
	RollNumber    string            `json:"roll_number"`
	ExamDate      string            `json:"exam_date"`
	Status        EvaluationStatus  `json:"status"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	TotalScore    *int              `json:"total_score,omitempty"`
	SubjectScores map[string]int    `json:"subject_scores,omitempty"`
	Comparison    []ComparisonEntry `json:"comparison,omitempty"`
}
