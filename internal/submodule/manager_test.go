package submodule

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/d8ahazard/audiolab-tools/internal/project"
	"github.com/d8ahazard/audiolab-tools/internal/runner"
)

type gitCall struct {
	dir  string
	args []string
}

// fakeGit records git invocations and answers them via respond.
type fakeGit struct {
	calls   []gitCall
	respond func(dir string, args []string) (string, error)
}

func (f *fakeGit) Run(_ context.Context, opts runner.Options) (runner.Result, error) {
	f.calls = append(f.calls, gitCall{dir: opts.Dir, args: opts.Args})
	if f.respond != nil {
		out, err := f.respond(opts.Dir, opts.Args)
		return runner.Result{Stdout: out}, err
	}
	return runner.Result{}, nil
}

func (f *fakeGit) commandLines() []string {
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = strings.Join(c.args, " ")
	}
	return lines
}

func newTestManager(t *testing.T, git *fakeGit) *Manager {
	t.Helper()
	m := NewManager(git, t.TempDir())
	m.sleep = func(time.Duration) {}
	return m
}

// registerAll writes a .gitmodules recording every configured submodule.
func registerAll(t *testing.T, m *Manager) {
	t.Helper()
	var b strings.Builder
	for _, p := range project.Submodules() {
		b.WriteString("[submodule \"" + p.Name + "\"]\n")
		b.WriteString("\tpath = " + p.Name + "\n")
		b.WriteString("\turl = " + p.URL + "\n")
	}
	if err := os.WriteFile(filepath.Join(m.RepoDir, ".gitmodules"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func initAllDirs(t *testing.T, m *Manager) {
	t.Helper()
	for _, p := range project.Submodules() {
		if err := os.MkdirAll(filepath.Join(m.RepoDir, p.Name, ".git"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestContainsPathEntry(t *testing.T) {
	content := "[submodule \"fairseq\"]\n\tpath = fairseq\n\turl = https://example.com/fairseq.git\n"

	tests := []struct {
		name   string
		lookup string
		want   bool
	}{
		{name: "registered path", lookup: "fairseq", want: true},
		{name: "unregistered path", lookup: "mamba", want: false},
		{name: "prefix of a registered path", lookup: "fair", want: false},
		{name: "superstring of a registered path", lookup: "fairseq2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsPathEntry(content, tt.lookup); got != tt.want {
				t.Errorf("containsPathEntry(%q) = %v, want %v", tt.lookup, got, tt.want)
			}
		})
	}
}

func TestCheckAndPullIdempotent(t *testing.T) {
	git := &fakeGit{}
	m := newTestManager(t, git)
	registerAll(t, m)
	initAllDirs(t, m)

	m.CheckAndPull(context.Background())
	if len(git.calls) != 0 {
		t.Fatalf("fully initialized repo must need no git commands, got %v", git.commandLines())
	}

	// Second pass performs no mutation either.
	m.CheckAndPull(context.Background())
	if len(git.calls) != 0 {
		t.Errorf("second pass must also be a no-op, got %v", git.commandLines())
	}
}

func TestCheckAndPullInitializesMissing(t *testing.T) {
	git := &fakeGit{}
	m := newTestManager(t, git)
	registerAll(t, m)
	initAllDirs(t, m)

	// Drop fairseq's checkout; it is registered but uninitialized.
	if err := os.RemoveAll(filepath.Join(m.RepoDir, "fairseq")); err != nil {
		t.Fatal(err)
	}

	m.CheckAndPull(context.Background())

	want := []string{"submodule update --init fairseq"}
	got := git.commandLines()
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestAddMissingRegistersAbsentSubmodule(t *testing.T) {
	git := &fakeGit{}
	m := newTestManager(t, git)

	m.AddMissing(context.Background())

	subs := project.Submodules()
	if len(git.calls) != len(subs) {
		t.Fatalf("got %d git calls, want one add per submodule (%d)", len(git.calls), len(subs))
	}
	for i, p := range subs {
		want := "submodule add " + p.URL + " " + p.Name
		if got := strings.Join(git.calls[i].args, " "); got != want {
			t.Errorf("call %d = %q, want %q", i, got, want)
		}
	}
}

func TestAddMissingConvertsPlainDirectory(t *testing.T) {
	git := &fakeGit{}
	m := newTestManager(t, git)

	dir := filepath.Join(m.RepoDir, "CLAP")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}

	m.AddMissing(context.Background())

	found := false
	for _, line := range git.commandLines() {
		if strings.HasPrefix(line, "submodule add ") && strings.HasSuffix(line, " CLAP") {
			found = true
		}
	}
	if !found {
		t.Errorf("plain directory was not converted, commands = %v", git.commandLines())
	}
	if _, err := os.Stat(dir + "_temp"); !os.IsNotExist(err) {
		t.Error("temporary directory was not removed")
	}
}

func TestAddMissingPreservesLocalChanges(t *testing.T) {
	const diffBody = "diff --git a/clap.py b/clap.py\n+local tweak"

	git := &fakeGit{
		respond: func(_ string, args []string) (string, error) {
			switch strings.Join(args, " ") {
			case "status --porcelain":
				return " M clap.py", nil
			case "diff":
				return diffBody, nil
			}
			return "", nil
		},
	}
	m := newTestManager(t, git)

	dir := filepath.Join(m.RepoDir, "CLAP")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	m.AddMissing(context.Background())

	patchPath := filepath.Join(m.RepoDir, backupDirName, "CLAP_backup", patchFileName)
	data, err := os.ReadFile(patchPath)
	if err != nil {
		t.Fatalf("patch was not saved: %v", err)
	}
	if !strings.Contains(string(data), "+local tweak") {
		t.Errorf("patch content = %q", data)
	}

	applied := false
	for _, call := range git.calls {
		if len(call.args) == 2 && call.args[0] == "apply" && call.args[1] == patchPath {
			applied = true
		}
	}
	if !applied {
		t.Errorf("saved patch was not re-applied, commands = %v", git.commandLines())
	}
	if _, err := os.Stat(dir + "_temp"); !os.IsNotExist(err) {
		t.Error("temporary directory was not removed")
	}
}

func TestAddMissingContinuesOnPatchFailure(t *testing.T) {
	git := &fakeGit{
		respond: func(_ string, args []string) (string, error) {
			switch strings.Join(args, " ") {
			case "status --porcelain":
				return " M clap.py", nil
			case "diff":
				return "diff --git a/clap.py b/clap.py", nil
			}
			if len(args) > 0 && args[0] == "apply" {
				return "", errors.New("patch does not apply")
			}
			return "", nil
		},
	}
	m := newTestManager(t, git)

	dir := filepath.Join(m.RepoDir, "CLAP")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	m.AddMissing(context.Background())

	// The patch stays in the backup tree and the temp copy is still removed.
	patchPath := filepath.Join(m.RepoDir, backupDirName, "CLAP_backup", patchFileName)
	if _, err := os.Stat(patchPath); err != nil {
		t.Errorf("patch must survive a failed apply: %v", err)
	}
	if _, err := os.Stat(dir + "_temp"); !os.IsNotExist(err) {
		t.Error("temporary directory was not removed after patch failure")
	}
}
