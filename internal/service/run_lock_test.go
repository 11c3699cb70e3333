package service

import (
	"errors"
	"testing"

	"github.com/tvandenberg/thirteenf/internal/apperrors"
	"github.com/tvandenberg/thirteenf/internal/config"
)

// TestRunService_SerializesRuns exercises the single-run lock directly: a
// held slot refuses both entry points before any pipeline work starts, and
// a release frees it again. Both refusals happen before any repository
// access, so a bare service value is enough.
func TestRunService_SerializesRuns(t *testing.T) {
	svc := &RunService{}

	if !svc.tryAcquire() {
		t.Fatal("Expected a fresh service to grant the run slot")
	}

	if _, err := svc.Run(config.Params{}); !errors.Is(err, apperrors.ErrRunActive) {
		t.Errorf("Expected ErrRunActive from Run, got %v", err)
	}
	if _, err := svc.Trigger(config.Params{}); !errors.Is(err, apperrors.ErrRunActive) {
		t.Errorf("Expected ErrRunActive from Trigger, got %v", err)
	}

	svc.release()
	if !svc.tryAcquire() {
		t.Error("Expected the run slot to free after release")
	}
}
