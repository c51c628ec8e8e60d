// Package config loads the optional YAML settings file that tunes
// occurrence generation and workday defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/phaseplan/internal/constants"
	"github.com/julianstephens/phaseplan/internal/models"
	"github.com/julianstephens/phaseplan/internal/utils"
)

// Limits bounds occurrence generation.
type Limits struct {
	BatchSize         int `yaml:"batch_size"`
	SeriesCap         int `yaml:"series_cap"`
	HardCeiling       int `yaml:"hard_ceiling"`
	ContinuousCadence int `yaml:"continuous_cadence"`
	BoundedCap        int `yaml:"bounded_cap"`
}

type Config struct {
	Limits          Limits `yaml:"limits"`
	RunwayMonths    int    `yaml:"runway_months"`
	Timezone        string `yaml:"timezone"`
	DefaultWorkdays string `yaml:"default_workdays"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Limits: Limits{
			BatchSize:         constants.DefaultBatchSize,
			SeriesCap:         constants.DefaultSeriesCap,
			HardCeiling:       constants.HardOccurrenceCeiling,
			ContinuousCadence: constants.DefaultContinuousCadence,
			BoundedCap:        constants.DefaultBoundedCap,
		},
		RunwayMonths:    constants.DefaultRunwayMonths,
		Timezone:        "Local",
		DefaultWorkdays: "mon,tue,wed,thu,fri",
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks caps and names.
func (c Config) Validate() error {
	var problems []string

	caps := []struct {
		name  string
		value int
	}{
		{"batch_size", c.Limits.BatchSize},
		{"series_cap", c.Limits.SeriesCap},
		{"continuous_cadence", c.Limits.ContinuousCadence},
		{"bounded_cap", c.Limits.BoundedCap},
	}
	if c.Limits.HardCeiling < 1 || c.Limits.HardCeiling > constants.HardOccurrenceCeiling {
		problems = append(problems, fmt.Sprintf("limits.hard_ceiling must be between 1 and %d", constants.HardOccurrenceCeiling))
	}
	for _, cp := range caps {
		if cp.value < 1 {
			problems = append(problems, fmt.Sprintf("limits.%s must be positive", cp.name))
		} else if cp.value > c.Limits.HardCeiling {
			problems = append(problems, fmt.Sprintf("limits.%s cannot exceed the hard ceiling (%d)", cp.name, c.Limits.HardCeiling))
		}
	}

	if c.RunwayMonths < 1 || c.RunwayMonths > 24 {
		problems = append(problems, "runway_months must be between 1 and 24")
	}
	if !utils.ValidateTimezone(c.Timezone) {
		problems = append(problems, fmt.Sprintf("unknown timezone %q", c.Timezone))
	}
	if _, err := c.Workdays(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Workdays parses DefaultWorkdays into a weekday mask.
func (c Config) Workdays() (models.WeekdayMask, error) {
	if strings.TrimSpace(c.DefaultWorkdays) == "" {
		return models.DefaultWeekdayMask(), nil
	}
	return models.ParseWeekdayMask(c.DefaultWorkdays)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
