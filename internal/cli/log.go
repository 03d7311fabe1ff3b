package cli

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// Environment holds the process-environment overrides both binaries honor.
type Environment struct {
	CUDAHome string `env:"CUDA_HOME"`
	Logfile  string `env:"AUDIOLAB_LOGFILE"`
	Debug    bool   `env:"AUDIOLAB_DEBUG"`
}

// ParseEnvironment reads the override variables from the process
// environment.
func ParseEnvironment() (Environment, error) {
	return env.ParseAs[Environment]()
}

// SetupLog configures the global logger from the environment and returns a
// closer for main to call on exit. Output goes to stdout; these tools are
// line-oriented console programs and never emit structured output.
func SetupLog() (func() error, error) {
	cfg, err := ParseEnvironment()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportTimestamp(false)

	if cfg.Logfile != "" {
		f, err := os.OpenFile(cfg.Logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		log.SetReportTimestamp(true)
		return f.Close, nil
	}

	log.SetOutput(os.Stdout)
	return func() error { return nil }, nil
}
