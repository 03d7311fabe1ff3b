package cuda

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/runner"
)

// standardArchs lists the compute capabilities native extensions are built
// for, newest first. Matches the TORCH_CUDA_ARCH_LIST values upstream build
// scripts understand.
var standardArchs = []string{"12.0", "10.0", "9.0", "8.9", "8.7", "8.6", "8.0", "7.5"}

// CommonArchs is the fallback arch list used when the installed GPU cannot
// be queried. Covers Ampere through Turing.
var CommonArchs = []string{"8.6", "8.0", "7.5"}

// ExpandArchList expands a single detected compute capability into every
// standard capability less than or equal to it, preserving standardArchs
// order. An unparseable input yields CommonArchs.
func ExpandArchList(detected string) []string {
	max, err := strconv.ParseFloat(strings.TrimSpace(detected), 64)
	if err != nil {
		return CommonArchs
	}

	out := []string{}
	for _, arch := range standardArchs {
		v, err := strconv.ParseFloat(arch, 64)
		if err != nil {
			continue
		}
		if v <= max {
			out = append(out, arch)
		}
	}
	if len(out) == 0 {
		return CommonArchs
	}
	return out
}

// DetectArchList queries the driver for the installed compute capability and
// expands it. Any failure falls back to CommonArchs.
func DetectArchList(ctx context.Context, r runner.Runner) []string {
	res, err := r.Run(ctx, runner.Options{
		Name: "nvidia-smi",
		Args: []string{"--query-gpu=compute_cap", "--format=csv,noheader"},
	})
	if err != nil {
		log.Warn("could not query GPU compute capability, using common arch list", "err", err)
		return CommonArchs
	}

	// Multi-GPU hosts report one line per device; build for the newest.
	best := ""
	bestVal := 0.0
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v, err := strconv.ParseFloat(line, 64); err == nil && v > bestVal {
			bestVal = v
			best = line
		}
	}
	if best == "" {
		return CommonArchs
	}

	archs := ExpandArchList(best)
	log.Info("detected GPU compute capability", "compute_cap", best, "arch_list", strings.Join(archs, ";"))
	return archs
}
