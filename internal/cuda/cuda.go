// Package cuda probes the host for a usable CUDA toolchain. Detection is
// layered and strictly best-effort: any probe that errors counts as a
// negative signal, and no probe can abort the surrounding run.
package cuda

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/runner"
	"github.com/d8ahazard/audiolab-tools/internal/utils"
)

// Info is the outcome of a detection pass.
type Info struct {
	// Available reports whether GPU builds should be attempted.
	Available bool

	// Home is the toolkit root, when one could be resolved. May be empty
	// even when Available is true; native build scripts then rely on their
	// own discovery.
	Home string
}

// Detector runs the probe chain. The zero value is not usable; use
// NewDetector.
type Detector struct {
	run    runner.Runner
	getenv func(string) string
}

// NewDetector returns a Detector backed by the given Runner. getenv may be
// nil, in which case os.Getenv is used.
func NewDetector(r runner.Runner, getenv func(string) string) *Detector {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Detector{run: r, getenv: getenv}
}

// Detect resolves CUDA availability and the toolkit home.
//
// Probe order: explicit override, CUDA_HOME from the environment, nvidia-smi
// exit status, a torch-level query, and finally well-known install locations
// for the host OS.
func (d *Detector) Detect(ctx context.Context, override string) Info {
	if override != "" {
		home := utils.ExpandPath(override)
		if utils.DirExists(home) {
			log.Info("using CUDA_HOME override", "path", home)
			return Info{Available: true, Home: home}
		}
		log.Warn("CUDA_HOME override does not exist, building CPU-only", "path", home)
		return Info{Available: false, Home: home}
	}

	if !d.hasCUDA(ctx) {
		return Info{}
	}

	home := d.getenv("CUDA_HOME")
	if home == "" {
		home = locateToolkit()
	}
	if home == "" {
		log.Warn("CUDA detected but could not determine CUDA_HOME, build might fail")
	}
	return Info{Available: true, Home: home}
}

// hasCUDA reports whether any probe finds a working GPU stack.
func (d *Detector) hasCUDA(ctx context.Context) bool {
	if _, err := d.run.Run(ctx, runner.Options{Name: "nvidia-smi"}); err == nil {
		log.Debug("CUDA detected via nvidia-smi")
		return true
	}

	// nvidia-smi missing or unhappy; ask torch, which also covers setups
	// where the driver tools are not on PATH.
	_, err := d.run.Run(ctx, runner.Options{
		Name: "python",
		Args: []string{"-c", "import sys, torch; sys.exit(0 if torch.cuda.is_available() else 1)"},
	})
	if err == nil {
		log.Debug("CUDA detected via torch")
		return true
	}

	// Last resort: a toolkit installed at a well-known location.
	if home := locateToolkit(); home != "" {
		log.Debug("CUDA toolkit found at well-known location", "path", home)
		return true
	}
	return false
}
