// Package main provides the CLI entrypoint for revise.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/revise/internal/app"
	"github.com/verte-zerg/revise/internal/config"
	"github.com/verte-zerg/revise/internal/logging"
	"github.com/verte-zerg/revise/internal/report"
)

var (
	configPath string
	workdir    string
	logLevel   string
	forceColor bool

	planExamDate       string
	planStartDate      string
	planWeekdayMinutes int
	planWeekendHours   float64
	planPracticeDays   int
	planOnlyStarted    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "revise",
		Short:         "Exam revision planner built from course notes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&workdir, "workdir", config.DefaultWorkdir, "workspace directory holding cours/, data/ and exports/")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&forceColor, "color", false, "force colored output")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newImpactCmd())
	rootCmd.AddCommand(newChainCmd())
	rootCmd.AddCommand(newGapsCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newDoneCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newMasterCmd())
	rootCmd.AddCommand(newUnmasterCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// addPlanFlags registers the planning overrides shared by plan and analyze.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&planExamDate, "exam-date", config.DefaultExamDate, "exam date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&planStartDate, "start-date", "", "first planning day (YYYY-MM-DD, default: today)")
	cmd.Flags().IntVar(&planWeekdayMinutes, "weekday-minutes", config.DefaultWeekdayMinutes, "study minutes per weekday")
	cmd.Flags().Float64Var(&planWeekendHours, "weekend-hours", config.DefaultWeekendHours, "study hours per weekend day")
	cmd.Flags().IntVar(&planPracticeDays, "practice-days", config.DefaultPracticeDays, "final days reserved for exam practice")
	cmd.Flags().BoolVar(&planOnlyStarted, "only-started-modules", false, "skip concepts of modules whose classes have not started")
}

// loadSettings reads the config file and overlays the flags the user set.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringFlag(cmd, "workdir", &fileCfg.Paths.Workdir, workdir)
	applyStringFlag(cmd, "log-level", &fileCfg.Logging.Level, logLevel)
	applyStringFlag(cmd, "exam-date", &fileCfg.User.ExamDate, planExamDate)
	applyStringFlag(cmd, "start-date", &fileCfg.Planning.StartDate, planStartDate)
	applyIntFlag(cmd, "weekday-minutes", &fileCfg.Planning.WeekdayMinutes, planWeekdayMinutes)
	applyFloatFlag(cmd, "weekend-hours", &fileCfg.Planning.WeekendHours, planWeekendHours)
	applyIntFlag(cmd, "practice-days", &fileCfg.Planning.PracticeDays, planPracticeDays)
	applyBoolFlag(cmd, "only-started-modules", &fileCfg.Planning.OnlyStartedModules, planOnlyStarted)

	settings, err := config.Resolve(fileCfg)
	if err != nil {
		return config.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// openContext resolves settings, builds the logger and opens the progress database.
func openContext(cmd *cobra.Command) (*app.Context, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Output: settings.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a, err := app.Open(settings, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func closeContext(a *app.Context) {
	if cerr := a.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
	a.Log.Sync()
}

func renderOptions(cmd *cobra.Command) report.Options {
	return report.Options{Color: report.ShouldUseColor(cmd.OutOrStdout(), forceColor)}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// The apply helpers copy a flag into the file config only when the user set
// it, so flags override the file which overrides built-in defaults.
func applyStringFlag(cmd *cobra.Command, name string, target **string, value string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = &value
}

func applyIntFlag(cmd *cobra.Command, name string, target **int, value int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = &value
}

func applyFloatFlag(cmd *cobra.Command, name string, target **float64, value float64) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = &value
}

func applyBoolFlag(cmd *cobra.Command, name string, target **bool, value bool) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = &value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# revise configuration
# Uncomment a value to enable it. CLI flags override config values.

[user]
# exam-date = %q          # Exam day (YYYY-MM-DD)

[planning]
# weekday-minutes = %d          # Study minutes on weekdays
# weekend-hours = %.1f           # Study hours on Saturday and Sunday
# start-date = ""               # First planning day (default: today)
# practice-days = %d             # Final days reserved for exam practice
# only-started-modules = false  # Skip concepts of modules with no class yet

[paths]
# workdir = %q                 # Workspace root
# courses = %q              # Course notes, relative to workdir
# course-schedule = %q  # In-person class calendar (JSON or YAML)

[llm]
# provider = %q         # ollama, openai or anthropic
# model = %q              # Model name (default depends on provider)
# host = %q  # Ollama host or OpenAI-compatible base URL
# api-key-env = ""            # Environment variable holding the API key
# delay = %q                # Pause between two documents
# max-content-chars = %d    # Characters of each document sent to the model

[logging]
# level = %q     # debug, info, warn or error
# format = %q # console or json
# output = %q  # stderr, stdout or a file path
`,
		config.DefaultExamDate,
		config.DefaultWeekdayMinutes,
		config.DefaultWeekendHours,
		config.DefaultPracticeDays,
		config.DefaultWorkdir,
		config.DefaultCoursesDir,
		config.DefaultCourseSchedule,
		config.DefaultProvider,
		config.DefaultOllamaModel,
		config.DefaultOllamaHost,
		config.DefaultLLMDelay.String(),
		config.DefaultMaxContentChars,
		config.DefaultLogLevel,
		config.DefaultLogFormat,
		config.DefaultLogOutput,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
