// Package config holds the temporal threshold bundle.
//
// The six knobs bound and order the reconciliation policy: epsilon is the
// noise window resolved silently, slow/compress thresholds grade how far a
// player may run from the world clock before stronger measures apply, and
// the max-step values cap how much a single reconcile call may move a
// clock or an anchor.
//
// The bundle is loaded once at process start, validated atomically, and
// passed by injection into the world clock service and the reconciler.
// An invalid bundle is fatal: the process must not start with thresholds
// that are non-positive or out of order.
package config

import "fmt"

// Temporal is the immutable threshold/rate bundle. All *Ms fields are
// world-time milliseconds.
type Temporal struct {
	// EpsilonMs is the largest offset magnitude absorbed silently (Snap).
	EpsilonMs int64 `json:"epsilon_ms"`
	// SlowThresholdMs is the largest offset handled by gradual policies
	// (Wait when behind, Slow when ahead); above it, ahead players are
	// compressed.
	SlowThresholdMs int64 `json:"slow_threshold_ms"`
	// CompressThresholdMs grades compression severity: offsets beyond it
	// are flagged for downstream narrative systems.
	CompressThresholdMs int64 `json:"compress_threshold_ms"`
	// DriftRate scales idle real-time into player clock advancement.
	DriftRate float64 `json:"drift_rate"`
	// WaitMaxStepMs caps how far one Wait call moves a player forward.
	WaitMaxStepMs int64 `json:"wait_max_step_ms"`
	// SlowMaxStepMs caps how far one Slow call nudges a location anchor.
	SlowMaxStepMs int64 `json:"slow_max_step_ms"`
}

// Default returns the stock threshold bundle: 5-minute epsilon, 1-hour
// slow threshold, 24-hour compress threshold, 1:1 drift, 30-minute wait
// steps, 10-minute slow steps.
func Default() Temporal {
	return Temporal{
		EpsilonMs:           300_000,
		SlowThresholdMs:     3_600_000,
		CompressThresholdMs: 86_400_000,
		DriftRate:           1.0,
		WaitMaxStepMs:       1_800_000,
		SlowMaxStepMs:       600_000,
	}
}

// ConfigurationError reports an invalid threshold bundle. It is fatal at
// startup; no component accepts an unvalidated Temporal.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("temporal config: %s: %s", e.Field, e.Reason)
}

// Validate checks the bundle as a whole: every threshold and max-step
// strictly positive, drift rate non-negative, and
// epsilonMs < slowThresholdMs < compressThresholdMs.
func (t Temporal) Validate() error {
	positive := []struct {
		name string
		v    int64
	}{
		{"epsilonMs", t.EpsilonMs},
		{"slowThresholdMs", t.SlowThresholdMs},
		{"compressThresholdMs", t.CompressThresholdMs},
		{"waitMaxStepMs", t.WaitMaxStepMs},
		{"slowMaxStepMs", t.SlowMaxStepMs},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return &ConfigurationError{Field: p.name, Reason: "must be strictly positive"}
		}
	}
	if t.DriftRate < 0 {
		return &ConfigurationError{Field: "driftRate", Reason: "must be >= 0"}
	}
	if t.EpsilonMs >= t.SlowThresholdMs {
		return &ConfigurationError{
			Field:  "epsilonMs",
			Reason: fmt.Sprintf("must be < slowThresholdMs (%d >= %d)", t.EpsilonMs, t.SlowThresholdMs),
		}
	}
	if t.SlowThresholdMs >= t.CompressThresholdMs {
		return &ConfigurationError{
			Field:  "slowThresholdMs",
			Reason: fmt.Sprintf("must be < compressThresholdMs (%d >= %d)", t.SlowThresholdMs, t.CompressThresholdMs),
		}
	}
	return nil
}
