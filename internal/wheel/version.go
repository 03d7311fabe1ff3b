package wheel

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/project"
)

var (
	setupVersionRe     = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
	pyprojectVersionRe = regexp.MustCompile(`(?m)^\s*version\s*=\s*["']([^"']+)["']`)
)

// ResolveVersion determines a project's declared version. Precedence:
// a version.txt file (returned verbatim, trimmed), then the version field of
// a legacy setup.py, then the version field of pyproject.toml. Returns an
// empty string when nothing declares a version.
func ResolveVersion(dir string) string {
	if data, err := os.ReadFile(filepath.Join(dir, "version.txt")); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, "setup.py")); err == nil {
		if m := setupVersionRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml")); err == nil {
		if m := pyprojectVersionRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}

	return ""
}

// EnsurePinnedVersion rewrites a pinned project's version file when the
// declared version has drifted. No-op for unpinned projects.
func EnsurePinnedVersion(proj project.Project, dir string) error {
	if !proj.Pinned() {
		return nil
	}

	resolved := ResolveVersion(dir)
	if resolved == proj.PinnedVersion {
		return nil
	}

	path := filepath.Join(dir, filepath.FromSlash(proj.VersionFile))
	log.Warn("declared version drifted from pin, rewriting",
		"project", proj.Name, "declared", resolved, "pinned", proj.PinnedVersion)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(proj.PinnedVersion+"\n"), 0o644)
}
