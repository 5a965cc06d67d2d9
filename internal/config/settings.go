package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

// Built-in defaults, used when neither the config file nor a flag sets a value.
const (
	DefaultExamDate        = "2027-03-22"
	DefaultWeekdayMinutes  = 30
	DefaultWeekendHours    = 8.0
	DefaultPracticeDays    = 0
	DefaultWorkdir         = "."
	DefaultCoursesDir      = "cours"
	DefaultCourseSchedule  = "data/course_schedule.json"
	DefaultProvider        = "ollama"
	DefaultOllamaHost      = "http://localhost:11434"
	DefaultOllamaModel     = "llama3"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAnthropicModel  = "claude-haiku-4-5-20251001"
	DefaultLLMDelay        = 2 * time.Second
	DefaultMaxContentChars = 15000
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultLogOutput       = "stderr"
)

// Settings is the fully resolved configuration.
type Settings struct {
	ExamDate       time.Time
	StartDate      time.Time
	WeekdayMinutes int
	WeekendHours   float64
	PracticeDays   int
	// OnlyStartedModules holds back concepts of modules with no class yet.
	OnlyStartedModules bool

	Workdir        string
	CoursesDir     string
	CourseSchedule string

	LLM     LLMSettings
	Logging LogSettings
}

// LLMSettings configures the concept extractor.
type LLMSettings struct {
	Provider        string
	Model           string
	Host            string
	APIKeyEnv       string
	Delay           time.Duration
	MaxContentChars int
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string
	Format string
	Output string
}

// Resolve overlays file values on the built-in defaults.
func Resolve(fc FileConfig) (Settings, error) {
	exam, err := model.ParseDay(DefaultExamDate, time.Local)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		ExamDate:       exam,
		WeekdayMinutes: DefaultWeekdayMinutes,
		WeekendHours:   DefaultWeekendHours,
		PracticeDays:   DefaultPracticeDays,
		Workdir:        DefaultWorkdir,
		CoursesDir:     DefaultCoursesDir,
		CourseSchedule: DefaultCourseSchedule,
		LLM: LLMSettings{
			Provider:        DefaultProvider,
			Delay:           DefaultLLMDelay,
			MaxContentChars: DefaultMaxContentChars,
		},
		Logging: LogSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
	}

	if v := fc.User.ExamDate; v != nil {
		if s.ExamDate, err = model.ParseDay(*v, time.Local); err != nil {
			return Settings{}, fmt.Errorf("invalid user.exam-date: %w", err)
		}
	}
	if v := fc.Planning.StartDate; v != nil && strings.TrimSpace(*v) != "" {
		if s.StartDate, err = model.ParseDay(*v, time.Local); err != nil {
			return Settings{}, fmt.Errorf("invalid planning.start-date: %w", err)
		}
	}
	setInt(&s.WeekdayMinutes, fc.Planning.WeekdayMinutes)
	setFloat(&s.WeekendHours, fc.Planning.WeekendHours)
	setInt(&s.PracticeDays, fc.Planning.PracticeDays)
	setBool(&s.OnlyStartedModules, fc.Planning.OnlyStartedModules)
	setString(&s.Workdir, fc.Paths.Workdir)
	setString(&s.CoursesDir, fc.Paths.Courses)
	setString(&s.CourseSchedule, fc.Paths.CourseSchedule)
	setString(&s.LLM.Provider, fc.LLM.Provider)
	setString(&s.LLM.Model, fc.LLM.Model)
	setString(&s.LLM.Host, fc.LLM.Host)
	setString(&s.LLM.APIKeyEnv, fc.LLM.APIKeyEnv)
	setInt(&s.LLM.MaxContentChars, fc.LLM.MaxContentChars)
	if v := fc.LLM.Delay; v != nil {
		if s.LLM.Delay, err = time.ParseDuration(*v); err != nil {
			return Settings{}, fmt.Errorf("invalid llm.delay: %w", err)
		}
	}
	setString(&s.Logging.Level, fc.Logging.Level)
	setString(&s.Logging.Format, fc.Logging.Format)
	setString(&s.Logging.Output, fc.Logging.Output)

	s.LLM.Provider = strings.ToLower(strings.TrimSpace(s.LLM.Provider))
	if s.LLM.Model == "" {
		s.LLM.Model = defaultModel(s.LLM.Provider)
	}
	if s.LLM.Host == "" && s.LLM.Provider == "ollama" {
		s.LLM.Host = DefaultOllamaHost
	}
	return s, nil
}

// Validate checks value ranges. Messages name the matching flag.
func (s Settings) Validate() error {
	if s.WeekdayMinutes < 0 {
		return fmt.Errorf("--weekday-minutes must be >= 0")
	}
	if s.WeekendHours < 0 {
		return fmt.Errorf("--weekend-hours must be >= 0")
	}
	if s.PracticeDays < 0 {
		return fmt.Errorf("--practice-days must be >= 0")
	}
	if s.ExamDate.IsZero() {
		return fmt.Errorf("--exam-date must be set")
	}
	if s.LLM.Delay < 0 {
		return fmt.Errorf("llm.delay must be >= 0")
	}
	if s.LLM.MaxContentChars <= 0 {
		return fmt.Errorf("llm.max-content-chars must be > 0")
	}
	switch s.LLM.Provider {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm.provider %q (expected ollama, openai or anthropic)", s.LLM.Provider)
	}
	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return DefaultOpenAIModel
	case "anthropic":
		return DefaultAnthropicModel
	default:
		return DefaultOllamaModel
	}
}

// Paths lists every file the tool reads or writes inside a workdir.
type Paths struct {
	Workdir        string
	Courses        string
	CourseSchedule string
	State          string
	ConceptMap     string
	Plan           string
	PlanMarkdown   string
	PlanHTML       string
	ProgressDB     string
}

// Layout resolves workspace paths relative to the settings' workdir.
func Layout(s Settings) Paths {
	root := s.Workdir
	if root == "" {
		root = DefaultWorkdir
	}
	return Paths{
		Workdir:        root,
		Courses:        under(root, s.CoursesDir),
		CourseSchedule: under(root, s.CourseSchedule),
		State:          filepath.Join(root, "data", "analysis_state.json"),
		ConceptMap:     filepath.Join(root, "exports", "concept_map.json"),
		Plan:           filepath.Join(root, "exports", "revision_plan.json"),
		PlanMarkdown:   filepath.Join(root, "exports", "revision_plan.md"),
		PlanHTML:       filepath.Join(root, "exports", "revision_plan.html"),
		ProgressDB:     filepath.Join(root, "data", "progress.db"),
	}
}

func under(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func setString(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setBool(target, value *bool) {
	if value != nil {
		*target = *value
	}
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}
