// Package report renders evaluation results for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/omrkit/omrkit/internal/exam"
	"github.com/omrkit/omrkit/internal/model"
)

var (
	correctText    = color.New(color.FgGreen).SprintFunc()
	incorrectText  = color.New(color.FgRed).SprintFunc()
	undetectedText = color.New(color.FgYellow).SprintFunc()
)

// WriteComparison renders the per-question comparison table for an
// evaluation followed by its score summary.
func WriteComparison(w io.Writer, ev *model.Evaluation, key *model.AnswerKey) error {
	entries, err := exam.Compare(ev.DetectedAnswers, key)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	fmt.Fprintf(w, "%s (%s)  %s  roll %s\n",
		key.ExamName, key.SetVersion, ev.StudentName, ev.RollNumber)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Q", "Subject", "Detected", "Correct", "Status"})
	for _, e := range entries {
		detected := "-"
		if e.DetectedAnswer != nil {
			detected = string(*e.DetectedAnswer)
		}
		table.Append([]string{
			strconv.Itoa(e.QuestionNumber),
			e.Subject,
			detected,
			string(e.CorrectAnswer),
			statusText(e.Status),
		})
	}
	table.Render()

	return writeSummary(w, ev, key)
}

func writeSummary(w io.Writer, ev *model.Evaluation, key *model.AnswerKey) error {
	if ev.Result == nil {
		fmt.Fprintf(w, "status: %s", ev.Status)
		if ev.FailureReason != "" {
			fmt.Fprintf(w, " (%s)", ev.FailureReason)
		}
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintf(w, "total: %d/%d\n", ev.Result.TotalScore, key.TotalQuestions)
	// Subject order follows the key's range table, not map order.
	for _, r := range key.Subjects {
		questions := r.To - r.From + 1
		fmt.Fprintf(w, "  %s: %d/%d\n", r.Subject, ev.Result.SubjectScores[r.Subject], questions)
	}
	return nil
}

func statusText(s model.ComparisonStatus) string {
	switch s {
	case model.ComparisonCorrect:
		return correctText(string(s))
	case model.ComparisonIncorrect:
		return incorrectText(string(s))
	default:
		return undetectedText(string(s))
	}
}
