// Package config loads the merge index engine's tunables from the
// environment, binding a "MERGE_" prefix to a typed Config via viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultMaxFetchSize is the default in-memory fetch cache capacity,
// overridable via MERGE_TABLE_MAX_SIZE.
const DefaultMaxFetchSize = 10000

// DefaultLivenessInterval is the default period between liveness sweeps,
// overridable via MERGE_LIVENESS_INTERVAL_MS.
const DefaultLivenessInterval = 2 * time.Second

// LivenessConfig configures the background source-liveness sweeper.
type LivenessConfig struct {
	Interval time.Duration
}

// Config holds the merge index engine's environment-tunable settings.
type Config struct {
	// MaxFetchSize caps the number of rows the fetch cache holds before it
	// is atomically discarded (MERGE_TABLE_MAX_SIZE).
	MaxFetchSize int
	Liveness     LivenessConfig
}

// Default returns the configuration used when no environment overrides
// are present.
func Default() *Config {
	return &Config{
		MaxFetchSize: DefaultMaxFetchSize,
		Liveness: LivenessConfig{
			Interval: DefaultLivenessInterval,
		},
	}
}

// Load builds a Config from defaults overridden by any MERGE_*
// environment variables: MERGE_TABLE_MAX_SIZE and
// MERGE_LIVENESS_INTERVAL_MS.
func Load() *Config {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("MERGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if v.IsSet("table_max_size") {
		if n := v.GetInt("table_max_size"); n > 0 {
			cfg.MaxFetchSize = n
		}
	}
	if v.IsSet("liveness_interval_ms") {
		if ms := v.GetInt("liveness_interval_ms"); ms > 0 {
			cfg.Liveness.Interval = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}
