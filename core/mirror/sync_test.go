package mirror

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/uni/core/repos"
)

// =============================================================================
// Clone Tests
// =============================================================================

func TestSync_FreshPathClonesAndNeverFetches(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	runner := newRecordingRunner()
	s := newTestSynchronizer(t, runner, nil)

	result := s.Sync(context.Background(), coreDescriptor(upstream))

	require.NoError(t, result.Err)
	assert.Equal(t, Initialized, result.Outcome)
	assert.Contains(t, runner.subcommands(), "clone")
	assert.NotContains(t, runner.subcommands(), "fetch")
	assert.True(t, IsClone(result.Path))
	assert.Equal(t, headOf(t, upstream), headOf(t, result.Path))
	assert.Equal(t, upstream, runGit(t, result.Path, "remote", "get-url", "upstream"))
	assert.Contains(t, strings.Join(result.Log, "\n"), "core repository initialized at")
}

func TestSync_NonCoreCloneHasNoUpstreamRemote(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)

	result := s.Sync(context.Background(), repos.Descriptor{Name: "team", URL: upstream, Branch: "main"})

	require.Equal(t, Initialized, result.Outcome)
	assert.Equal(t, "origin", runGit(t, result.Path, "remote"))
}

func TestSync_CloneChecksOutConfiguredBranch(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	runGit(t, upstream, "branch", "dev")
	s := newTestSynchronizer(t, newRecordingRunner(), nil)

	d := coreDescriptor(upstream)
	d.Branch = "dev"
	result := s.Sync(context.Background(), d)

	assert.Equal(t, Initialized, result.Outcome)
	assert.True(t, result.Switched)
	assert.Equal(t, "dev", runGit(t, result.Path, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestSync_CloneMissingBranchStillInitialized(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)

	d := coreDescriptor(upstream)
	d.Branch = "does-not-exist"
	result := s.Sync(context.Background(), d)

	assert.Equal(t, Initialized, result.Outcome)
	assert.False(t, result.Switched)
	assert.Contains(t, strings.Join(result.Log, "\n"), "could not check out branch does-not-exist")
}

func TestSync_CloneFailureIsError(t *testing.T) {
	isolateGit(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)

	missing := filepath.Join(t.TempDir(), "no-such-repo")
	result := s.Sync(context.Background(), coreDescriptor(missing))

	assert.Equal(t, Error, result.Outcome)
	assert.Error(t, result.Err)
	assert.Contains(t, strings.Join(result.Log, "\n"), "Failed to clone core")
}

// =============================================================================
// Update Tests
// =============================================================================

func TestSync_InitializedThenUpToDate(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	runner := newRecordingRunner()
	s := newTestSynchronizer(t, runner, nil)
	d := coreDescriptor(upstream)

	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)
	before := headOf(t, s.Layout().MirrorPath("core"))
	runner.reset()

	result := s.Sync(context.Background(), d)

	assert.Equal(t, UpToDate, result.Outcome)
	assert.Equal(t, []string{"fetch"}, runner.subcommands(), "no working tree writes when up to date")
	assert.Equal(t, before, headOf(t, result.Path))
}

func TestSync_FastForwardsWhenBehind(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)
	d := coreDescriptor(upstream)
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	for i := 1; i <= 3; i++ {
		commitFile(t, upstream, fmt.Sprintf("skills/skill-%d/SKILL.md", i), "x", fmt.Sprintf("commit %d", i))
	}

	result := s.Sync(context.Background(), d)

	require.NoError(t, result.Err)
	assert.Equal(t, FastForwarded, result.Outcome)
	assert.True(t, result.Updated())
	assert.Equal(t, headOf(t, upstream), headOf(t, result.Path))
	assert.Contains(t, strings.Join(result.Log, "\n"), "✓ core repository updated successfully")

	again := s.Sync(context.Background(), d)
	assert.Equal(t, UpToDate, again.Outcome, "fast-forward is idempotent")
}

func TestSync_DivergedIsReportedNotResolved(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	runner := newRecordingRunner()
	s := newTestSynchronizer(t, runner, nil)
	d := coreDescriptor(upstream)
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	mirrorPath := s.Layout().MirrorPath("core")
	local := commitFile(t, mirrorPath, "local.txt", "mine", "local change")
	commitFile(t, upstream, "up1.txt", "1", "upstream 1")
	commitFile(t, upstream, "up2.txt", "2", "upstream 2")
	runner.reset()

	result := s.Sync(context.Background(), d)

	assert.Equal(t, BehindDiverged, result.Outcome)
	assert.True(t, result.Behind())
	assert.Equal(t, local, headOf(t, mirrorPath), "local ref must not change")
	assert.NotContains(t, runner.subcommands(), "merge")
	assert.True(t, Summarize([]Result{result}).AnyBehind)
}

func TestSync_LocalAheadIsBehindDiverged(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)
	d := coreDescriptor(upstream)
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	mirrorPath := s.Layout().MirrorPath("core")
	local := commitFile(t, mirrorPath, "local.txt", "mine", "unpushed")

	result := s.Sync(context.Background(), d)

	assert.Equal(t, BehindDiverged, result.Outcome)
	assert.Equal(t, local, headOf(t, mirrorPath))
}

func TestSync_FetchFailureIsSwallowed(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)
	d := repos.Descriptor{Name: "team", URL: upstream, Branch: "main"}
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	mirrorPath := s.Layout().MirrorPath("team")
	runGit(t, mirrorPath, "remote", "set-url", "origin", filepath.Join(t.TempDir(), "gone"))

	result := s.Sync(context.Background(), d)

	assert.Equal(t, UpToDate, result.Outcome)
	assert.NoError(t, result.Err)
}

func TestSync_FetchTimeoutIsError(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	runner := newRecordingRunner()
	s := newTestSynchronizer(t, runner, nil)
	d := coreDescriptor(upstream)
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	runner.fail = map[string]error{"fetch": fmt.Errorf("%w: git fetch", ErrTimeout)}
	result := s.Sync(context.Background(), d)

	assert.Equal(t, Error, result.Outcome)
	assert.True(t, errors.Is(result.Err, ErrTimeout))
}

func TestSync_FastForwardFailureIsError(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	runner := newRecordingRunner()
	s := newTestSynchronizer(t, runner, nil)
	d := coreDescriptor(upstream)
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)
	commitFile(t, upstream, "next.txt", "n", "next")

	runner.fail = map[string]error{"merge": errors.New("git merge failed: conflict")}
	result := s.Sync(context.Background(), d)

	assert.Equal(t, Error, result.Outcome)
	assert.Contains(t, strings.Join(result.Log, "\n"), "Failed to update core repository")
}

// =============================================================================
// Branch Switch Tests
// =============================================================================

func TestSync_SwitchCreatesTrackingBranch(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)
	d := repos.Descriptor{Name: "team", URL: upstream, Branch: "main"}
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	runGit(t, upstream, "checkout", "--quiet", "-b", "dev")
	devHead := commitFile(t, upstream, "dev.txt", "dev", "dev work")
	runGit(t, upstream, "checkout", "--quiet", "main")

	d.Branch = "dev"
	result := s.Sync(context.Background(), d)

	assert.Equal(t, BranchSwitched, result.Outcome)
	assert.True(t, result.Switched)
	assert.Equal(t, "dev", runGit(t, result.Path, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, devHead, headOf(t, result.Path))
	assert.Equal(t, "origin/dev", runGit(t, result.Path, "rev-parse", "--abbrev-ref", "dev@{u}"))
	assert.Contains(t, strings.Join(result.Log, "\n"), "Creating local branch 'dev' tracking origin/dev")
}

func TestSync_SwitchReusesLocalBranch(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)
	d := repos.Descriptor{Name: "team", URL: upstream, Branch: "main"}
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	mirrorPath := s.Layout().MirrorPath("team")
	runGit(t, mirrorPath, "checkout", "--quiet", "-b", "scratch")

	result := s.Sync(context.Background(), d)

	assert.Equal(t, BranchSwitched, result.Outcome)
	assert.Equal(t, "main", runGit(t, mirrorPath, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestSync_SwitchToMissingBranchWarnsAndContinues(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	s := newTestSynchronizer(t, newRecordingRunner(), nil)
	d := repos.Descriptor{Name: "team", URL: upstream, Branch: "main"}
	require.Equal(t, Initialized, s.Sync(context.Background(), d).Outcome)

	d.Branch = "nope"
	result := s.Sync(context.Background(), d)

	assert.Equal(t, UpToDate, result.Outcome)
	assert.False(t, result.Switched)
	assert.Contains(t, strings.Join(result.Log, "\n"), "Warning: Branch nope not found for team")
	assert.Equal(t, "main", runGit(t, result.Path, "rev-parse", "--abbrev-ref", "HEAD"))
}

// =============================================================================
// Fork Tests
// =============================================================================

type fakeForker struct {
	available bool
	forkURL   string
	err       error
	calls     int
}

func (f *fakeForker) Available(context.Context) bool { return f.available }

func (f *fakeForker) Fork(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.forkURL, f.err
}

func TestSync_CoreCloneUsesForker(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	fork := t.TempDir()
	runGit(t, fork, "clone", "--quiet", upstream, ".")

	forker := &fakeForker{available: true, forkURL: fork}
	s := newTestSynchronizer(t, newRecordingRunner(), forker)

	result := s.Sync(context.Background(), coreDescriptor(upstream))

	assert.Equal(t, Initialized, result.Outcome)
	assert.Equal(t, 1, forker.calls)
	assert.Equal(t, fork, runGit(t, result.Path, "remote", "get-url", "origin"))
	assert.Equal(t, upstream, runGit(t, result.Path, "remote", "get-url", "upstream"))
}

func TestSync_ForkFailureFallsBackToUpstreamRemote(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	forker := &fakeForker{available: true, err: errors.New("not authenticated")}
	s := newTestSynchronizer(t, newRecordingRunner(), forker)

	result := s.Sync(context.Background(), coreDescriptor(upstream))

	assert.Equal(t, Initialized, result.Outcome)
	assert.Equal(t, upstream, runGit(t, result.Path, "remote", "get-url", "upstream"))
	assert.Contains(t, strings.Join(result.Log, "\n"), "could not fork")
}

func TestSync_UnavailableForkerIsNotCalled(t *testing.T) {
	isolateGit(t)
	upstream := newUpstream(t)
	forker := &fakeForker{available: false}
	s := newTestSynchronizer(t, newRecordingRunner(), forker)

	result := s.Sync(context.Background(), coreDescriptor(upstream))

	assert.Equal(t, Initialized, result.Outcome)
	assert.Zero(t, forker.calls)
}

func TestShortRef(t *testing.T) {
	assert.Equal(t, "origin/main", shortRef("refs/remotes/origin/main"))
	assert.Equal(t, "", shortRef(""))
}
