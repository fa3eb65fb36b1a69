package mirror

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adalundhe/uni/core/repos"
	"github.com/adalundhe/uni/core/storage"
)

// =============================================================================
// Test Helpers
// =============================================================================

// isolateGit pins identity and hides user/system git config so fixtures
// behave the same on every machine.
func isolateGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(out))

	return strings.TrimSpace(string(out))
}

// commitFile writes content to name and commits it, returning the new HEAD.
func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", message)

	return runGit(t, dir, "rev-parse", "HEAD")
}

// newUpstream creates a repository on main with one commit carrying a skill.
func newUpstream(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init", "--quiet")
	runGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	commitFile(t, dir, "skills/brainstorming/SKILL.md", "---\ndescription: Brainstorm\n---\n", "initial")
	return dir
}

func headOf(t *testing.T, dir string) string {
	t.Helper()
	return runGit(t, dir, "rev-parse", "HEAD")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingRunner records every git invocation before delegating.
type recordingRunner struct {
	inner Runner

	mu    sync.Mutex
	calls [][]string

	// fail, when set, short-circuits matching subcommands.
	fail map[string]error
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{inner: NewExecRunner()}
}

func (r *recordingRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), args...))
	err := r.fail[args[0]]
	r.mu.Unlock()

	if err != nil {
		return "", err
	}
	return r.inner.Run(ctx, dir, args...)
}

func (r *recordingRunner) subcommands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c[0])
	}
	return out
}

func (r *recordingRunner) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// newTestSynchronizer returns a synchronizer rooted in a temp dir.
func newTestSynchronizer(t *testing.T, runner Runner, forker Forker) *Synchronizer {
	t.Helper()

	return NewSynchronizer(Config{
		Layout: storage.NewLayout(t.TempDir()),
		Runner: runner,
		Forker: forker,
		Logger: discardLogger(),
	})
}

func coreDescriptor(url string) repos.Descriptor {
	return repos.Descriptor{Name: "core", URL: url, Branch: "main"}
}
