// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	User     UserConfig     `toml:"user"`
	Planning PlanningConfig `toml:"planning"`
	Paths    PathsConfig    `toml:"paths"`
	LLM      LLMConfig      `toml:"llm"`
	Logging  LoggingConfig  `toml:"logging"`
}

// UserConfig maps user-related settings.
type UserConfig struct {
	ExamDate *string `toml:"exam-date"`
}

// PlanningConfig maps revision planning settings.
type PlanningConfig struct {
	WeekdayMinutes *int     `toml:"weekday-minutes"`
	WeekendHours   *float64 `toml:"weekend-hours"`
	StartDate      *string  `toml:"start-date"`
	PracticeDays   *int     `toml:"practice-days"`

	OnlyStartedModules *bool `toml:"only-started-modules"`
}

// PathsConfig maps workspace locations.
type PathsConfig struct {
	Workdir        *string `toml:"workdir"`
	Courses        *string `toml:"courses"`
	CourseSchedule *string `toml:"course-schedule"`
}

// LLMConfig maps concept extraction provider settings.
type LLMConfig struct {
	Provider        *string `toml:"provider"`
	Model           *string `toml:"model"`
	Host            *string `toml:"host"`
	APIKeyEnv       *string `toml:"api-key-env"`
	Delay           *string `toml:"delay"`
	MaxContentChars *int    `toml:"max-content-chars"`
}

// LoggingConfig maps logger settings.
type LoggingConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	Output *string `toml:"output"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
