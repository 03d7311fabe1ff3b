// Package wheel builds distributable Python wheels for the vendored audio
// subprojects and collects them into a shared output directory.
package wheel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/cuda"
	"github.com/d8ahazard/audiolab-tools/internal/project"
	"github.com/d8ahazard/audiolab-tools/internal/runner"
)

// ErrMissingPyproject is returned when a project has no pyproject.toml and
// therefore cannot be built.
var ErrMissingPyproject = errors.New("pyproject.toml does not exist")

// Builder runs per-project wheel builds.
type Builder struct {
	// Run executes python/pip invocations.
	Run runner.Runner

	// BaseDir is the repository root holding the subproject directories.
	BaseDir string

	// BaseEnv is the environment snapshot every build starts from. CUDA_HOME
	// is already merged in when detection succeeded.
	BaseEnv runner.Environ

	// CUDA is the detection outcome for this run.
	CUDA cuda.Info

	// Isolation enables build isolation. The default (false) matches running
	// inside a dedicated venv where the current environment carries the
	// build requirements.
	Isolation bool

	// ArchList is the expanded compute-capability list applied to builds
	// that compile GPU kernels for explicit architectures.
	ArchList []string
}

// Build produces a wheel for the given project and returns the path of its
// dist directory. All failure modes are logged; the caller treats an error
// as "this project produced nothing" and moves on.
func (b *Builder) Build(ctx context.Context, proj project.Project) (string, error) {
	dir := filepath.Join(b.BaseDir, proj.Name)

	if err := EnsurePinnedVersion(proj, dir); err != nil {
		log.Warn("could not enforce pinned version, continuing", "project", proj.Name, "err", err)
	}

	if err := b.clean(proj, dir); err != nil {
		return "", err
	}

	if _, err := os.Stat(filepath.Join(dir, "pyproject.toml")); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingPyproject, filepath.Join(dir, "pyproject.toml"))
	}

	distDir := filepath.Join(dir, "dist")
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return "", fmt.Errorf("unable to create dist directory: %w", err)
	}

	args := []string{"-m", "build", "--wheel"}
	if !b.Isolation {
		args = append(args, "--no-isolation")
	}

	env := b.BaseEnv.Merge(b.overlay(proj))
	if _, err := b.Run.Run(ctx, runner.Options{Dir: dir, Env: env, Name: "python", Args: args}); err != nil {
		return "", fmt.Errorf("build failed for %s: %w", proj.Name, err)
	}

	return distDir, nil
}

// clean removes artifacts of a previous build so stale wheels are never
// collected.
func (b *Builder) clean(proj project.Project, dir string) error {
	for _, stale := range []string{
		filepath.Join(dir, "dist"),
		filepath.Join(dir, "build"),
		filepath.Join(dir, proj.Name+".egg-info"),
	} {
		if err := os.RemoveAll(stale); err != nil {
			return fmt.Errorf("unable to remove %s: %w", stale, err)
		}
	}
	return nil
}

// overlay returns the project-specific build environment. Empty when the
// project needs nothing beyond the base snapshot.
func (b *Builder) overlay(proj project.Project) map[string]string {
	if !b.CUDA.Available {
		return nil
	}

	switch proj.Overlay {
	case project.OverlayCausalConv1D:
		return map[string]string{
			"TORCH_CUDA_ARCH_LIST":      "all",
			"CAUSAL_CONV1D_FORCE_BUILD": "TRUE",
		}
	case project.OverlayFairseq:
		log.Info("building with CUDA support", "project", proj.Name)
		archs := b.ArchList
		if len(archs) == 0 {
			archs = cuda.CommonArchs
		}
		return map[string]string{
			"TORCH_CUDA_ARCH_LIST": strings.Join(archs, ";"),
			"FORCE_CUDA":           "1",
		}
	case project.OverlayMamba:
		log.Info("building with CUDA support", "project", proj.Name)
		return map[string]string{
			"TORCH_CUDA_ARCH_LIST": "all",
			"MAMBA_FORCE_BUILD":    "TRUE",
		}
	default:
		return nil
	}
}
