package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"territory-engine/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NeutralCaptureThreshold != Default().NeutralCaptureThreshold {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte(`
neutral_capture_threshold: 200
decay_per_minute: 5
actions:
  kill:
    base_points: 80
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.NeutralCaptureThreshold != 200 {
		t.Fatalf("neutral threshold = %v, want 200", got.NeutralCaptureThreshold)
	}
	if got.DecayPerMinute != 5 {
		t.Fatalf("decay = %v, want 5", got.DecayPerMinute)
	}
	if got.Spec(domain.ActionKill).BasePoints != 80 {
		t.Fatalf("kill points = %v, want 80", got.Spec(domain.ActionKill).BasePoints)
	}
	// Untouched fields keep their defaults.
	if got.EnemyCaptureThreshold != Default().EnemyCaptureThreshold {
		t.Fatalf("enemy threshold should keep default, got %v", got.EnemyCaptureThreshold)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	bad := Default()
	bad.RepeatKillReductionFactor = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatalf("factor 1.5 should be rejected")
	}

	bad = Default()
	bad.GridRows = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("grid 0 rows should be rejected")
	}

	bad = Default()
	bad.Actions = map[domain.ActionKind]Action{"teleport": {}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("unknown action kind should be rejected")
	}
}

func TestThresholdByOwner(t *testing.T) {
	tn := Default()
	if got := tn.Threshold(domain.TeamNone); got != tn.NeutralCaptureThreshold {
		t.Fatalf("neutral threshold = %v", got)
	}
	if got := tn.Threshold(domain.TeamBlue); got != tn.EnemyCaptureThreshold {
		t.Fatalf("enemy threshold = %v", got)
	}
}
