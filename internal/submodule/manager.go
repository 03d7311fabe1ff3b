// Package submodule reconciles the vendored subproject directories into
// registered, initialized git submodules. Every operation is best-effort:
// a failure is logged and the next subproject is attempted, so a full pass
// always runs to completion.
package submodule

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/d8ahazard/audiolab-tools/internal/project"
	"github.com/d8ahazard/audiolab-tools/internal/runner"
	"github.com/d8ahazard/audiolab-tools/internal/utils"
)

const (
	backupDirName = "backup_repos"
	patchFileName = "local_changes.patch"

	// Transient file locks (antivirus, editors, Windows handles) make
	// directory moves flaky; they are retried a few times before the
	// subproject is given up on.
	moveAttempts = 3
	moveDelay    = time.Second
)

// Manager reconciles submodules for one repository.
type Manager struct {
	Run     runner.Runner
	RepoDir string

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewManager returns a Manager rooted at repoDir.
func NewManager(r runner.Runner, repoDir string) *Manager {
	return &Manager{Run: r, RepoDir: repoDir, sleep: time.Sleep}
}

// Registered reports whether the submodule is recorded in .gitmodules.
func (m *Manager) Registered(name string) bool {
	data, err := os.ReadFile(filepath.Join(m.RepoDir, ".gitmodules"))
	if err != nil {
		return false
	}
	return containsPathEntry(string(data), name)
}

// Initialized reports whether the submodule working tree has git metadata,
// i.e. has been checked out at least once.
func (m *Manager) Initialized(name string) bool {
	_, err := os.Stat(filepath.Join(m.RepoDir, name, ".git"))
	return err == nil
}

// AddMissing registers every configured submodule that is absent from
// .gitmodules, converting pre-existing plain directories along the way.
// Uncommitted changes found in a plain git directory are saved as a patch
// under backup_repos/ and re-applied to the fresh checkout, best-effort.
func (m *Manager) AddMissing(ctx context.Context) {
	for _, proj := range project.Submodules() {
		if m.Registered(proj.Name) {
			continue
		}

		dir := filepath.Join(m.RepoDir, proj.Name)
		if !utils.DirExists(dir) {
			log.Info("adding submodule", "name", proj.Name, "url", proj.URL)
			m.add(ctx, proj)
			continue
		}

		log.Info("directory exists but is not a submodule, converting", "name", proj.Name)
		if utils.DirExists(filepath.Join(dir, ".git")) || utils.FileExists(filepath.Join(dir, ".git")) {
			m.convertGitDir(ctx, proj)
		} else {
			m.convertPlainDir(ctx, proj)
		}
	}
}

// CheckAndPull initializes any registered-but-uninitialized submodules.
// Already-initialized submodules are left untouched, which makes repeated
// runs idempotent.
func (m *Manager) CheckAndPull(ctx context.Context) {
	for _, proj := range project.Submodules() {
		switch {
		case !m.Registered(proj.Name):
			log.Warn("submodule is not configured in .gitmodules", "name", proj.Name)
		case !m.Initialized(proj.Name):
			log.Info("initializing submodule", "name", proj.Name)
			m.git(ctx, "", "submodule", "update", "--init", proj.Name)
		default:
			log.Info("submodule is already initialized", "name", proj.Name)
		}
	}
}

// UpdateAll moves every submodule to the latest upstream commit.
func (m *Manager) UpdateAll(ctx context.Context) {
	log.Info("updating all submodules")
	m.git(ctx, "", "submodule", "update", "--remote", "--merge")
}

// InitAll initializes and updates all registered submodules.
func (m *Manager) InitAll(ctx context.Context) {
	log.Info("initializing all submodules")
	m.git(ctx, "", "submodule", "init")
	m.git(ctx, "", "submodule", "update")
}

// Setup adds missing submodules and then initializes everything.
func (m *Manager) Setup(ctx context.Context) {
	m.AddMissing(ctx)
	m.InitAll(ctx)
}

// add registers the submodule at its configured URL.
func (m *Manager) add(ctx context.Context, proj project.Project) bool {
	_, err := m.git(ctx, "", "submodule", "add", proj.URL, proj.Name)
	if err != nil {
		log.Error("could not add submodule", "name", proj.Name, "err", err)
		return false
	}
	return true
}

// convertPlainDir replaces a plain (non-git) directory with a registered
// submodule. The old contents are moved aside and discarded.
func (m *Manager) convertPlainDir(ctx context.Context, proj project.Project) {
	dir := filepath.Join(m.RepoDir, proj.Name)
	tempDir := dir + "_temp"

	if !m.moveDir(dir, tempDir) {
		log.Error("could not move directory aside, skipping", "name", proj.Name)
		return
	}
	m.add(ctx, proj)
	m.removeDir(tempDir)
}

// convertGitDir replaces a plain git checkout with a registered submodule,
// preserving uncommitted changes as a patch that is re-applied afterwards.
func (m *Manager) convertGitDir(ctx context.Context, proj project.Project) {
	dir := filepath.Join(m.RepoDir, proj.Name)
	tempDir := dir + "_temp"
	backupDir := filepath.Join(m.RepoDir, backupDirName, proj.Name+"_backup")

	log.Info("backing up existing git repository", "name", proj.Name)
	m.removeDir(backupDir)

	patchPath := ""
	status, err := m.git(ctx, dir, "status", "--porcelain")
	if err == nil && status != "" {
		log.Info("local changes found, saving patch", "name", proj.Name)
		diff, err := m.git(ctx, dir, "diff")
		if err == nil {
			if err := os.MkdirAll(backupDir, 0o755); err == nil {
				patchPath = filepath.Join(backupDir, patchFileName)
				if err := os.WriteFile(patchPath, []byte(diff+"\n"), 0o644); err != nil {
					log.Warn("could not save patch", "name", proj.Name, "err", err)
					patchPath = ""
				} else {
					log.Info("changes saved", "path", patchPath)
				}
			}
		}
	}

	if !m.moveDir(dir, tempDir) {
		log.Error("could not move directory aside, skipping", "name", proj.Name)
		return
	}

	if m.add(ctx, proj) && patchPath != "" {
		log.Info("re-applying local changes", "name", proj.Name)
		if _, err := m.git(ctx, dir, "apply", patchPath); err != nil {
			// The patch stays in backup_repos for manual recovery.
			log.Warn("could not re-apply local changes", "name", proj.Name, "patch", patchPath, "err", err)
		}
	}

	m.removeDir(tempDir)
}

// moveDir moves src to dst, replacing dst, with bounded retries for
// transient file locks.
func (m *Manager) moveDir(src, dst string) bool {
	for attempt := 1; attempt <= moveAttempts; attempt++ {
		err := os.RemoveAll(dst)
		if err == nil {
			err = os.Rename(src, dst)
			if err == nil {
				return true
			}
		}
		log.Warn("error moving directory", "src", src, "attempt", attempt, "max", moveAttempts, "err", err)
		m.sleep(moveDelay)
	}
	log.Error("failed to move directory", "src", src, "attempts", moveAttempts)
	return false
}

// removeDir removes a directory tree with bounded retries.
func (m *Manager) removeDir(path string) bool {
	for attempt := 1; attempt <= moveAttempts; attempt++ {
		err := os.RemoveAll(path)
		if err == nil {
			return true
		}
		log.Warn("error removing directory", "path", path, "attempt", attempt, "max", moveAttempts, "err", err)
		m.sleep(moveDelay)
	}
	log.Error("failed to remove directory", "path", path, "attempts", moveAttempts)
	return false
}

// git runs a git command rooted at the repository (or the given dir) and
// returns its stdout.
func (m *Manager) git(ctx context.Context, dir string, args ...string) (string, error) {
	if dir == "" {
		dir = m.RepoDir
	}
	res, err := m.Run.Run(ctx, runner.Options{Dir: dir, Name: "git", Args: args})
	return res.Stdout, err
}
