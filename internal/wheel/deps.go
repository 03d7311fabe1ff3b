package wheel

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/runner"
)

// buildDep is one auxiliary build-time tool installed before any wheel is
// built. Installs are independent; one failure never blocks the rest.
type buildDep struct {
	packages []string
	neededBy string
	windows  []string // replacement packages on Windows, when different
}

var buildDeps = []buildDep{
	{packages: []string{"triton"}, windows: []string{"triton-windows"}, neededBy: "mamba"},
	{packages: []string{"ninja"}, neededBy: "mamba"},
	{packages: []string{"packaging"}, neededBy: "causal-conv1d"},
	{packages: []string{"hatchling", "hatch-vcs"}, neededBy: "openvoice-cli"},
	{packages: []string{"cython"}, neededBy: "fairseq"},
}

// InstallBuildDeps installs the auxiliary tools the subproject builds rely
// on. Best-effort: each failure is logged and the run continues.
func InstallBuildDeps(ctx context.Context, r runner.Runner, env runner.Environ, goos string) {
	for _, dep := range buildDeps {
		packages := dep.packages
		if goos == "windows" && dep.windows != nil {
			packages = dep.windows
		}

		log.Info("installing build dependency", "packages", strings.Join(packages, " "), "needed_by", dep.neededBy)
		args := append([]string{"-m", "pip", "install"}, packages...)
		if _, err := r.Run(ctx, runner.Options{Name: "python", Args: args, Env: env}); err != nil {
			log.Warn("could not install build dependency, continuing",
				"packages", strings.Join(packages, " "), "needed_by", dep.neededBy, "err", err)
		}
	}
}

// EnsureTorchCUDA reinstalls torch from the CUDA wheel index when the host
// has CUDA but the installed torch does not. Best-effort.
func EnsureTorchCUDA(ctx context.Context, r runner.Runner, env runner.Environ) {
	_, err := r.Run(ctx, runner.Options{
		Name: "python",
		Args: []string{"-c", "import sys, torch; sys.exit(0 if torch.cuda.is_available() else 1)"},
		Env:  env,
	})
	if err == nil {
		log.Info("torch already has CUDA support")
		return
	}

	log.Info("reinstalling torch with CUDA support")
	_, err = r.Run(ctx, runner.Options{
		Name: "python",
		Args: []string{
			"-m", "pip", "install", "--force-reinstall",
			"torch>=2.4.0", "torchvision>=0.19.0", "torchaudio>=2.4.0",
			"--index-url", "https://download.pytorch.org/whl/cu124",
		},
		Env: env,
	})
	if err != nil {
		log.Warn("could not reinstall torch with CUDA support, continuing", "err", err)
	}
}
