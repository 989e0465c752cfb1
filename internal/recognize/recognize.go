// Package recognize is the boundary to the bubble-detection pipeline. The
// detection itself runs outside this process; what arrives here is its JSON
// scan report, with null standing for every bubble the pipeline could not
// read with confidence. Nothing in this package ever turns an unreadable
// bubble into a guessed answer.
package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/omrkit/omrkit/internal/model"
)

// ScanResult mirrors the detection pipeline's output document.
type ScanResult struct {
	Success       bool                  `json:"success"`
	Error         string                `json:"error,omitempty"`
	Answers       map[int]*model.Answer `json:"answers"`
	TotalDetected int                   `json:"total_detected"`
	DetectionRate float64               `json:"detection_rate"`
}

// DecodeScan reads a scan report and returns the detected answers. A report
// with success=false is an error; its answers are never used.
func DecodeScan(r io.Reader) (model.DetectedAnswerSet, *ScanResult, error) {
	var res ScanResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, nil, fmt.Errorf("decode scan result: %w", err)
	}
	if !res.Success {
		if res.Error != "" {
			return nil, &res, fmt.Errorf("scan failed: %s", res.Error)
		}
		return nil, &res, fmt.Errorf("scan failed")
	}

	detected := make(model.DetectedAnswerSet, len(res.Answers))
	for q, a := range res.Answers {
		detected[q] = a
	}
	return detected, &res, nil
}

// ReadScanFile decodes a scan report from disk.
func ReadScanFile(path string) (model.DetectedAnswerSet, *ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open scan file: %w", err)
	}
	defer f.Close()
	return DecodeScan(f)
}

// Source supplies detected answers for a captured sheet image.
type Source interface {
	Detect(ctx context.Context, imagePath string) (model.DetectedAnswerSet, error)
}

// Pipeline runs an external detection command over a sheet image and decodes
// the report it writes. The command is invoked as:
//
//	<command> <args...> --image <path> --output <tmpfile>
type Pipeline struct {
	Command string
	Args    []string
}

func (p *Pipeline) Detect(ctx context.Context, imagePath string) (model.DetectedAnswerSet, error) {
	tmp, err := os.MkdirTemp("", "omrkit-scan-")
	if err != nil {
		return nil, fmt.Errorf("scan temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)
	outPath := filepath.Join(tmp, "answers.json")

	args := append(append([]string{}, p.Args...), "--image", imagePath, "--output", outPath)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("run detection pipeline: %w (output: %s)", err, out)
	}

	detected, res, err := ReadScanFile(outPath)
	if err != nil {
		return nil, err
	}
	slog.Info("sheet scanned",
		"image", imagePath,
		"total_detected", res.TotalDetected,
		"detection_rate", res.DetectionRate,
	)
	return detected, nil
}
