package wheel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/d8ahazard/audiolab-tools/internal/runner"
)

func TestInstallBuildDeps(t *testing.T) {
	t.Run("linux installs the standard set", func(t *testing.T) {
		run := &fakeRunner{}
		InstallBuildDeps(context.Background(), run, runner.Environ{"PATH=/usr/bin"}, "linux")

		if len(run.calls) != len(buildDeps) {
			t.Fatalf("got %d installs, want %d", len(run.calls), len(buildDeps))
		}
		if got := strings.Join(run.calls[0].Args, " "); got != "-m pip install triton" {
			t.Errorf("first install = %q, want triton", got)
		}
	})

	t.Run("windows swaps in triton-windows", func(t *testing.T) {
		run := &fakeRunner{}
		InstallBuildDeps(context.Background(), run, nil, "windows")

		if got := strings.Join(run.calls[0].Args, " "); got != "-m pip install triton-windows" {
			t.Errorf("first install = %q, want triton-windows", got)
		}
	})

	t.Run("failures do not block later installs", func(t *testing.T) {
		run := &fakeRunner{err: errors.New("pip: network unreachable")}
		InstallBuildDeps(context.Background(), run, nil, "linux")

		if len(run.calls) != len(buildDeps) {
			t.Errorf("got %d installs despite failures, want %d", len(run.calls), len(buildDeps))
		}
	})

	t.Run("hatchling and hatch-vcs install together", func(t *testing.T) {
		run := &fakeRunner{}
		InstallBuildDeps(context.Background(), run, nil, "linux")

		found := false
		for _, call := range run.calls {
			if strings.Join(call.Args, " ") == "-m pip install hatchling hatch-vcs" {
				found = true
			}
		}
		if !found {
			t.Error("hatchling and hatch-vcs must install in one invocation")
		}
	})
}

func TestEnsureTorchCUDA(t *testing.T) {
	t.Run("torch already has CUDA", func(t *testing.T) {
		run := &fakeRunner{}
		EnsureTorchCUDA(context.Background(), run, nil)

		if len(run.calls) != 1 {
			t.Errorf("expected only the torch query, got %d calls", len(run.calls))
		}
	})

	t.Run("reinstall from the CUDA wheel index", func(t *testing.T) {
		run := &fakeRunner{err: errors.New("no CUDA torch")}
		EnsureTorchCUDA(context.Background(), run, nil)

		if len(run.calls) != 2 {
			t.Fatalf("expected query then reinstall, got %d calls", len(run.calls))
		}
		args := strings.Join(run.calls[1].Args, " ")
		if !strings.Contains(args, "--index-url https://download.pytorch.org/whl/cu124") {
			t.Errorf("reinstall args = %q, missing CUDA wheel index", args)
		}
		if !strings.Contains(args, "--force-reinstall") {
			t.Errorf("reinstall args = %q, missing --force-reinstall", args)
		}
	})
}
