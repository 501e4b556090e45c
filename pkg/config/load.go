// load.go reads the threshold bundle from defaults, an optional YAML
// file, and CHRONOS_* environment variables, in increasing precedence.
// Each of the six knobs is independently overridable; the result is
// validated as an atomic bundle before it is returned.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Viper keys for the six overridable knobs.
const (
	KeyEpsilonMs           = "temporal.epsilon_ms"
	KeySlowThresholdMs     = "temporal.slow_threshold_ms"
	KeyCompressThresholdMs = "temporal.compress_threshold_ms"
	KeyDriftRate           = "temporal.drift_rate"
	KeyWaitMaxStepMs       = "temporal.wait_max_step_ms"
	KeySlowMaxStepMs       = "temporal.slow_max_step_ms"
)

// EnvPrefix is prepended to env overrides, e.g. CHRONOS_TEMPORAL_EPSILON_MS.
const EnvPrefix = "CHRONOS"

// Load builds a validated Temporal from defaults, the config file at
// cfgFile (optional, "" to skip), and the environment. Returns a
// *ConfigurationError if the resulting bundle violates the ordering or
// positivity invariants.
func Load(cfgFile string) (Temporal, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Temporal{}, &ConfigurationError{Field: "file", Reason: err.Error()}
		}
	}

	t := Temporal{
		EpsilonMs:           v.GetInt64(KeyEpsilonMs),
		SlowThresholdMs:     v.GetInt64(KeySlowThresholdMs),
		CompressThresholdMs: v.GetInt64(KeyCompressThresholdMs),
		DriftRate:           v.GetFloat64(KeyDriftRate),
		WaitMaxStepMs:       v.GetInt64(KeyWaitMaxStepMs),
		SlowMaxStepMs:       v.GetInt64(KeySlowMaxStepMs),
	}
	if err := t.Validate(); err != nil {
		return Temporal{}, err
	}
	return t, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault(KeyEpsilonMs, def.EpsilonMs)
	v.SetDefault(KeySlowThresholdMs, def.SlowThresholdMs)
	v.SetDefault(KeyCompressThresholdMs, def.CompressThresholdMs)
	v.SetDefault(KeyDriftRate, def.DriftRate)
	v.SetDefault(KeyWaitMaxStepMs, def.WaitMaxStepMs)
	v.SetDefault(KeySlowMaxStepMs, def.SlowMaxStepMs)
}
