package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Environment variables consulted for flag defaults. A .env file in the
// working directory is loaded first when present.
const (
	EnvOutDir   = "MHT_OUT_DIR"
	EnvWorkers  = "MHT_WORKERS"
	EnvStateDir = "MHT_STATE_DIR"
	EnvLogLevel = "MHT_LOG_LEVEL"
	EnvLogDir   = "MHT_LOG_DIR"
	EnvAddr     = "MHT_ADDR"
)

// DefaultAddr is the serve listen address when MHT_ADDR is unset.
const DefaultAddr = ":8080"

// Config captures all command-line options required to run the converter.
type Config struct {
	Inputs          []string
	OutDir          string
	Stdout          bool
	Overwrite       bool
	Recursive       bool
	Workers         int
	StateDir        string
	SkipConverted   bool
	ContinueOnError bool
	DryRun          bool
	LogLevel        string
	LogDir          string
	IncludePath     []string
	IncludeContent  []string
	ExcludePath     []string
	ExcludeContent  []string
}

// LoadEnv loads a .env file from the working directory if it exists.
func LoadEnv() {
	_ = godotenv.Load()
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.StringP("out-dir", "o", getEnv(EnvOutDir, ""), "Directory for converted files (default: next to each input)")
	flags.Bool("stdout", false, "Write the converted HTML of a single input to stdout")
	flags.Bool("overwrite", false, "Replace existing output files")
	flags.BoolP("recursive", "r", false, "Descend into subdirectories of directory inputs")
	flags.IntP("workers", "w", getEnvInt(EnvWorkers, runtime.NumCPU()), "Number of archives converted concurrently")
	flags.String("state-dir", getEnv(EnvStateDir, defaultStateDir), "Directory for incremental conversion state")
	flags.Bool("skip-converted", true, "Skip archives whose content was converted in a previous run")
	flags.Bool("keep-going", false, "Continue with the next archive when one fails to convert")
	flags.Bool("dry-run", false, "Convert in memory and emit stats without writing files")
	flags.String("log-level", DefaultLogLevel(), "Logging level: debug, info, warn, error")
	flags.String("log-dir", getEnv(EnvLogDir, ""), "Directory for log files in addition to the console")
	flags.StringArray("include-path", nil, "Regex allow-list applied to archive paths (mutually exclusive with exclude flags)")
	flags.StringArray("include-content", nil, "Regex allow-list applied to archive content (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-path", nil, "Regex block-list applied to archive paths (mutually exclusive with include flags)")
	flags.StringArray("exclude-content", nil, "Regex block-list applied to archive content (mutually exclusive with include flags)")

	return nil
}

// LoadConfig converts the parsed Cobra flags and positional inputs into a
// Config struct with validation.
func LoadConfig(cmd *cobra.Command, args []string) (Config, error) {
	flags := cmd.Flags()

	outDir, err := flags.GetString("out-dir")
	if err != nil {
		return Config{}, err
	}
	stdout, err := flags.GetBool("stdout")
	if err != nil {
		return Config{}, err
	}
	overwrite, err := flags.GetBool("overwrite")
	if err != nil {
		return Config{}, err
	}
	recursive, err := flags.GetBool("recursive")
	if err != nil {
		return Config{}, err
	}
	workers, err := flags.GetInt("workers")
	if err != nil {
		return Config{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return Config{}, err
	}
	skipConverted, err := flags.GetBool("skip-converted")
	if err != nil {
		return Config{}, err
	}
	keepGoing, err := flags.GetBool("keep-going")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	includePath, err := flags.GetStringArray("include-path")
	if err != nil {
		return Config{}, err
	}
	includeContent, err := flags.GetStringArray("include-content")
	if err != nil {
		return Config{}, err
	}
	excludePath, err := flags.GetStringArray("exclude-path")
	if err != nil {
		return Config{}, err
	}
	excludeContent, err := flags.GetStringArray("exclude-content")
	if err != nil {
		return Config{}, err
	}

	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return Config{}, err
		}
	}

	if outDir != "" {
		outDir = filepath.Clean(outDir)
	}

	// The state file would record outputs that were never written.
	if stdout {
		skipConverted = false
		// An out dir coming from MHT_OUT_DIR is not a conflicting request.
		if !flags.Changed("out-dir") {
			outDir = ""
		}
	}

	cfg := Config{
		Inputs:          args,
		OutDir:          outDir,
		Stdout:          stdout,
		Overwrite:       overwrite,
		Recursive:       recursive,
		Workers:         workers,
		StateDir:        filepath.Clean(stateDir),
		SkipConverted:   skipConverted,
		ContinueOnError: keepGoing,
		DryRun:          dryRun,
		LogLevel:        NormalizeLogLevel(logLevel),
		LogDir:          logDir,
		IncludePath:     includePath,
		IncludeContent:  includeContent,
		ExcludePath:     excludePath,
		ExcludeContent:  excludeContent,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// NormalizeLogLevel lower-cases level and maps "warning" to "warn".
func NormalizeLogLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	return level
}

// ValidateLogLevel rejects anything but debug, info, warn and error.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid --log-level: %s", level)
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("at least one .mht file or directory is required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("--workers must be positive")
	}
	if cfg.Stdout {
		if len(cfg.Inputs) != 1 {
			return fmt.Errorf("--stdout accepts exactly one input")
		}
		if cfg.OutDir != "" {
			return fmt.Errorf("--stdout and --out-dir are mutually exclusive")
		}
	}
	includeActive := len(cfg.IncludePath) > 0 || len(cfg.IncludeContent) > 0
	excludeActive := len(cfg.ExcludePath) > 0 || len(cfg.ExcludeContent) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	return ValidateLogLevel(cfg.LogLevel)
}

// ServeAddr returns the listen address from MHT_ADDR or DefaultAddr. Call it
// after LoadEnv so a .env file is honoured.
func ServeAddr() string {
	return getEnv(EnvAddr, DefaultAddr)
}

// DefaultLogLevel returns MHT_LOG_LEVEL or "info".
func DefaultLogLevel() string {
	return getEnv(EnvLogLevel, "info")
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mht-to-html", "state"), nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
