package config

import (
	"testing"
	"time"
)

func devConfig() *Config {
	return &Config{
		Port:             "8000",
		Env:              "development",
		DatabaseURL:      "postgres://localhost/chartdesk",
		AIMatchThreshold: 0.80,
	}
}

func TestValidate_DevWithoutSigningKey(t *testing.T) {
	cfg := devConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("dev config without signing key should validate, got %v", err)
	}
}

func TestValidate_ProductionRequiresSigningKey(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for production without JWT_SIGNING_KEY")
	}

	cfg.JWTSigningKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("production with signing key should validate, got %v", err)
	}
}

func TestValidate_AIMatchThresholdBounds(t *testing.T) {
	for _, bad := range []float64{0, -0.5, 1.5} {
		cfg := devConfig()
		cfg.AIMatchThreshold = bad
		if err := cfg.Validate(); err == nil {
			t.Errorf("threshold %v: expected error", bad)
		}
	}
	for _, ok := range []float64{0.01, 0.80, 1.0} {
		cfg := devConfig()
		cfg.AIMatchThreshold = ok
		if err := cfg.Validate(); err != nil {
			t.Errorf("threshold %v: unexpected error %v", ok, err)
		}
	}
}

func TestIsDev(t *testing.T) {
	cfg := devConfig()
	if !cfg.IsDev() {
		t.Error("ENV=development should be dev")
	}
	cfg.Env = "production"
	if cfg.IsDev() {
		t.Error("ENV=production should not be dev")
	}
}

func TestOCRTimeout_ClampedToServiceWindow(t *testing.T) {
	cases := []struct {
		secs int
		want time.Duration
	}{
		{0, 60 * time.Second},
		{30, 60 * time.Second},
		{60, 60 * time.Second},
		{120, 120 * time.Second},
		{180, 180 * time.Second},
		{600, 180 * time.Second},
	}
	for _, tc := range cases {
		cfg := devConfig()
		cfg.OCRTimeoutSecs = tc.secs
		if got := cfg.OCRTimeout(); got != tc.want {
			t.Errorf("OCRTimeoutSecs=%d: got %v, want %v", tc.secs, got, tc.want)
		}
	}
}
