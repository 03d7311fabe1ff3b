package submodule

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/project"
	"github.com/d8ahazard/audiolab-tools/internal/utils"
)

// fallbackBranch is checked out when the remote default branch cannot be
// determined.
const fallbackBranch = "main"

// Refresh initializes and recursively updates all registered submodules,
// then brings each one to the revision the build expects: the pinned commit
// for pinned projects, the tip of the remote default branch for the rest.
// Every step is best-effort; a submodule that cannot be refreshed is built
// at whatever revision it already has.
func (m *Manager) Refresh(ctx context.Context) {
	log.Info("refreshing submodules")
	m.git(ctx, "", "submodule", "init")
	m.git(ctx, "", "submodule", "update", "--recursive")

	for _, proj := range project.Submodules() {
		dir := filepath.Join(m.RepoDir, proj.Name)
		if !utils.DirExists(dir) {
			log.Warn("submodule directory does not exist, skipping", "name", proj.Name)
			continue
		}

		if proj.PinnedCommit != "" {
			m.refreshPinned(ctx, proj, dir)
			continue
		}
		m.refreshTracking(ctx, proj, dir)
	}
}

// refreshPinned force-checks-out the pinned commit and rewrites the version
// file so the wheel build reports the pinned version.
func (m *Manager) refreshPinned(ctx context.Context, proj project.Project, dir string) {
	log.Info("pinning submodule", "name", proj.Name, "commit", proj.PinnedCommit)
	if _, err := m.git(ctx, dir, "checkout", "--force", proj.PinnedCommit); err != nil {
		log.Warn("could not check out pinned commit, continuing", "name", proj.Name, "err", err)
		return
	}

	if proj.VersionFile == "" || proj.PinnedVersion == "" {
		return
	}
	path := filepath.Join(dir, filepath.FromSlash(proj.VersionFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn("could not rewrite version file", "name", proj.Name, "err", err)
		return
	}
	if err := os.WriteFile(path, []byte(proj.PinnedVersion+"\n"), 0o644); err != nil {
		log.Warn("could not rewrite version file", "name", proj.Name, "err", err)
	}
}

// refreshTracking checks out the remote default branch and pulls.
func (m *Manager) refreshTracking(ctx context.Context, proj project.Project, dir string) {
	branch := m.defaultBranch(ctx, dir)
	if _, err := m.git(ctx, dir, "checkout", branch); err != nil {
		log.Warn("could not check out branch, continuing", "name", proj.Name, "branch", branch, "err", err)
		return
	}
	if _, err := m.git(ctx, dir, "pull"); err != nil {
		log.Warn("could not pull latest changes, continuing", "name", proj.Name, "err", err)
	}
}

// defaultBranch resolves the remote default branch name, falling back to a
// fixed guess when the remote HEAD reference is absent.
func (m *Manager) defaultBranch(ctx context.Context, dir string) string {
	out, err := m.git(ctx, dir, "symbolic-ref", "refs/remotes/origin/HEAD", "--short")
	if err != nil {
		return fallbackBranch
	}
	branch := strings.TrimPrefix(strings.TrimSpace(out), "origin/")
	if branch == "" {
		return fallbackBranch
	}
	return branch
}
