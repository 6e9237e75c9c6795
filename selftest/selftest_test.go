package selftest

import (
	"testing"

	"github.com/openloop/podcore/config"
)

func TestRunPassesOnDefaultConfig(t *testing.T) {
	if err := Run(config.Default()); err != nil {
		t.Fatalf("expected default configuration to pass selftest, got %v", err)
	}
}

func TestRunCatchesInvertedLateralBounds(t *testing.T) {
	cfg := config.Default()
	cfg.LateralMin, cfg.LateralMax = cfg.LateralMax, cfg.LateralMin
	if err := Run(cfg); err == nil {
		t.Fatal("expected inverted lateral bounds to fail selftest")
	}
}
