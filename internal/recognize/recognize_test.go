package recognize

import (
	"strings"
	"testing"
)

func TestDecodeScan(t *testing.T) {
	raw := `{
		"success": true,
		"answers": {"1": "A", "2": null, "3": "D"},
		"total_detected": 2,
		"detection_rate": 0.67
	}`

	detected, res, err := DecodeScan(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeScan: %v", err)
	}

	if a, ok := detected.Detected(1); !ok || a != "A" {
		t.Errorf("Q1 = %v %v, want A", a, ok)
	}
	// Null is the explicit undetected marker.
	if _, ok := detected.Detected(2); ok {
		t.Error("Q2 should be undetected")
	}
	if a, ok := detected.Detected(3); !ok || a != "D" {
		t.Errorf("Q3 = %v %v, want D", a, ok)
	}

	if res.TotalDetected != 2 {
		t.Errorf("total_detected = %d, want 2", res.TotalDetected)
	}
	if res.DetectionRate != 0.67 {
		t.Errorf("detection_rate = %v, want 0.67", res.DetectionRate)
	}
}

func TestDecodeScanFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "pipeline reported failure",
			raw:  `{"success": false, "error": "no bubbles detected", "answers": {}}`,
			want: "no bubbles detected",
		},
		{
			name: "failure without message",
			raw:  `{"success": false, "answers": {}}`,
			want: "scan failed",
		},
		{
			name: "malformed document",
			raw:  `{"success": tru`,
			want: "decode scan result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected, _, err := DecodeScan(strings.NewReader(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			if detected != nil {
				t.Error("failed scan must not yield answers")
			}
		})
	}
}
