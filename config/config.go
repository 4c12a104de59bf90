// SPDX-License-Identifier: EPL-2.0

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config covers the engine's process-level settings: everything that is
// not specific to a single deck or track.
type Config struct {
	DeviceSampleRate  int     `yaml:"device_sample_rate"`
	DeviceChannels    int     `yaml:"device_channels"`
	DeviceBufferSize  int     `yaml:"device_buffer_size"`
	MaxTransitionTime float64 `yaml:"max_transition_time"`
	MaxLeadingDuration float64 `yaml:"max_leading_duration"`
	FadingCurve       float64 `yaml:"fading_curve"`
	LoadingPoolSize   int     `yaml:"loading_pool_size"`
	ReadAheadPoolSize int     `yaml:"read_ahead_pool_size"`
	LogLevel          string  `yaml:"log_level"`
}

// Default returns the engine's built-in defaults, matching the original
// engine's hardcoded constants where one is named.
func Default() Config {
	return Config{
		DeviceSampleRate:   44100,
		DeviceChannels:     2,
		DeviceBufferSize:   4096,
		MaxTransitionTime:  8.0,
		MaxLeadingDuration: 8.0,
		FadingCurve:        50.0,
		LoadingPoolSize:    2,
		ReadAheadPoolSize:  2,
		LogLevel:           "info",
	}
}

// Load reads a YAML config file at path (if non-empty and present), then
// applies MEDLEY_-prefixed environment overrides on top, following
// friendsincode-grimnir_radio's internal/config getEnvAny/getEnvIntAny
// helper pattern. A missing path is not an error — Default() alone is
// returned with env overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults + env
		default:
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg.DeviceSampleRate = getEnvIntAny([]string{"MEDLEY_DEVICE_SAMPLE_RATE"}, cfg.DeviceSampleRate)
	cfg.DeviceChannels = getEnvIntAny([]string{"MEDLEY_DEVICE_CHANNELS"}, cfg.DeviceChannels)
	cfg.DeviceBufferSize = getEnvIntAny([]string{"MEDLEY_DEVICE_BUFFER_SIZE"}, cfg.DeviceBufferSize)
	cfg.MaxTransitionTime = getEnvFloatAny([]string{"MEDLEY_MAX_TRANSITION_TIME"}, cfg.MaxTransitionTime)
	cfg.MaxLeadingDuration = getEnvFloatAny([]string{"MEDLEY_MAX_LEADING_DURATION"}, cfg.MaxLeadingDuration)
	cfg.FadingCurve = getEnvFloatAny([]string{"MEDLEY_FADING_CURVE"}, cfg.FadingCurve)
	cfg.LoadingPoolSize = getEnvIntAny([]string{"MEDLEY_LOADING_POOL_SIZE"}, cfg.LoadingPoolSize)
	cfg.ReadAheadPoolSize = getEnvIntAny([]string{"MEDLEY_READ_AHEAD_POOL_SIZE"}, cfg.ReadAheadPoolSize)
	cfg.LogLevel = getEnvAny([]string{"MEDLEY_LOG_LEVEL"}, cfg.LogLevel)

	return cfg, nil
}

func getEnvAny(names []string, fallback string) string {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
	}
	return fallback
}

func getEnvIntAny(names []string, fallback int) int {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return fallback
}

func getEnvFloatAny(names []string, fallback float64) float64 {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}
