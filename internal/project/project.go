// Package project defines the static table of audio subprojects managed by
// the build tooling. The table is ordered: causal-conv1d must appear before
// mamba because mamba links against it at build time.
package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// ErrUnknown is returned when a name does not match any configured project.
var ErrUnknown = errors.New("unknown project")

// CUDAOverlay selects the extra build environment a project needs when CUDA
// is available.
type CUDAOverlay int

const (
	// OverlayNone builds with the base environment only.
	OverlayNone CUDAOverlay = iota

	// OverlayCausalConv1D forces a native build of the causal-conv1d kernels.
	OverlayCausalConv1D

	// OverlayFairseq forces CUDA extensions on and pins the arch list to the
	// compute capabilities detected on the host.
	OverlayFairseq

	// OverlayMamba forces a native build of the mamba selective-scan kernels.
	OverlayMamba
)

// Fairseq pin. The toolkit is kept at an exact revision because newer
// commits break the voice-clone pipeline that consumes these wheels.
const (
	FairseqVersion = "0.12.3"
	FairseqCommit  = "a54021305d6b3c4c5959ac9395135f63202db8f1"
)

// Project describes one vendored subproject.
type Project struct {
	// Name is the directory name under the repository root.
	Name string

	// URL is the submodule remote. Empty for projects that are vendored
	// directly rather than tracked as submodules.
	URL string

	// PinnedVersion, when set, is the version the build must produce.
	PinnedVersion string

	// PinnedCommit, when set, is the exact revision checked out during a
	// submodule refresh.
	PinnedCommit string

	// VersionFile is the repo-relative path rewritten when the declared
	// version drifts from PinnedVersion.
	VersionFile string

	// Overlay selects CUDA-specific build environment variables.
	Overlay CUDAOverlay
}

// Pinned reports whether the project is held at an exact version.
func (p Project) Pinned() bool { return p.PinnedVersion != "" }

// All lists every buildable project in build order. CLAP is first so its
// laion_clap 1.1.5 wheel lands before any stale 1.1.4 copy can be collected,
// and causal-conv1d precedes mamba.
var All = []Project{
	{Name: "CLAP", URL: "https://github.com/d8ahazard/CLAP.git"},
	{Name: "openvoice-cli", URL: "https://github.com/d8ahazard/openvoice-cli.git"},
	{Name: "versatile_audio_super_resolution", URL: "https://github.com/d8ahazard/versatile_audio_super_resolution.git"},
	{Name: "stable-audio-tools", URL: "https://github.com/d8ahazard/stable-audio-tools.git"},
	{
		Name:          "fairseq",
		URL:           "https://github.com/d8ahazard/fairseq.git",
		PinnedVersion: FairseqVersion,
		PinnedCommit:  FairseqCommit,
		VersionFile:   "fairseq/version.txt",
		Overlay:       OverlayFairseq,
	},
	{Name: "causal-conv1d", URL: "https://github.com/d8ahazard/causal-conv1d.git", Overlay: OverlayCausalConv1D},
	{Name: "mamba", URL: "https://github.com/d8ahazard/mamba.git", Overlay: OverlayMamba},
	{Name: "coqui-ai-TTS", URL: "https://github.com/d8ahazard/coqui-ai-TTS.git"},
	{Name: "dctorch"}, // vendored directly, no upstream submodule
}

// Names returns the project names in build order.
func Names() []string {
	names := make([]string, len(All))
	for i, p := range All {
		names[i] = p.Name
	}
	return names
}

// Submodules returns the projects tracked as git submodules, in table order.
func Submodules() []Project {
	subs := make([]Project, 0, len(All))
	for _, p := range All {
		if p.URL != "" {
			subs = append(subs, p)
		}
	}
	return subs
}

// Lookup finds a project by name.
func Lookup(name string) (Project, error) {
	for _, p := range All {
		if p.Name == name {
			return p, nil
		}
	}
	return Project{}, fmt.Errorf("%w: %s", ErrUnknown, name)
}

// Suggest returns the configured name closest to the given one, or an empty
// string when nothing comes close. Used for friendlier --package errors.
func Suggest(name string) string {
	matches := fuzzy.Find(strings.ToLower(name), lowerNames())
	if len(matches) == 0 {
		return ""
	}
	return All[matches[0].Index].Name
}

func lowerNames() []string {
	names := Names()
	for i, n := range names {
		names[i] = strings.ToLower(n)
	}
	return names
}
