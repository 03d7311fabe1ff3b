// Package runner executes external tools (git, python, pip) and captures
// their output. Every subprocess in the build tooling goes through the
// Runner interface so orchestration logic can be tested with a fake.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// Result holds the captured streams of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options describes a single command invocation.
type Options struct {
	// Dir is the working directory. Empty means the process working dir.
	Dir string

	// Env is the complete environment for the command. Nil inherits the
	// parent environment. Builds always pass an explicit snapshot so one
	// project's overlay never leaks into another's.
	Env []string

	Name string
	Args []string
}

// Runner runs commands to completion and reports their output.
type Runner interface {
	Run(ctx context.Context, opts Options) (Result, error)
}

// Exec is the production Runner backed by os/exec.
type Exec struct{}

// New returns a Runner that executes real processes.
func New() Runner { return Exec{} }

// Run executes the command, blocking until it exits. A non-zero exit status
// is returned as an error with both streams captured in the Result; callers
// decide whether that aborts their unit of work.
func (Exec) Run(ctx context.Context, opts Options) (Result, error) {
	log.Debug("running command",
		"cmd", opts.Name+" "+strings.Join(opts.Args, " "),
		"dir", displayDir(opts.Dir))

	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		log.Error("command failed",
			"cmd", opts.Name+" "+strings.Join(opts.Args, " "),
			"exit", res.ExitCode,
			"stdout", res.Stdout,
			"stderr", res.Stderr)
		return res, err
	}
	return res, nil
}

func displayDir(dir string) string {
	if dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
