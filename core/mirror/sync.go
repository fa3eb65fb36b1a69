package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/adalundhe/uni/core/repos"
	"github.com/adalundhe/uni/core/storage"
)

// Config configures a Synchronizer.
type Config struct {
	// Layout locates mirrors under the root directory.
	Layout storage.Layout

	// Runner executes git. Defaults to NewExecRunner().
	Runner Runner

	// Forker is offered the core repository after a fresh clone. Nil
	// registers the descriptor URL as the upstream remote instead.
	Forker Forker

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Synchronizer reconciles mirrors against their descriptors.
type Synchronizer struct {
	layout storage.Layout
	git    Runner
	forker Forker
	logger *slog.Logger
}

// NewSynchronizer creates a Synchronizer from cfg, applying defaults.
func NewSynchronizer(cfg Config) *Synchronizer {
	if cfg.Runner == nil {
		cfg.Runner = NewExecRunner()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synchronizer{
		layout: cfg.Layout,
		git:    cfg.Runner,
		forker: cfg.Forker,
		logger: cfg.Logger,
	}
}

// Layout returns the root layout the synchronizer writes into.
func (s *Synchronizer) Layout() storage.Layout {
	return s.layout
}

// Sync reconciles the mirror for d. It never returns an error: every
// failure is captured in the Result so other mirrors can proceed.
func (s *Synchronizer) Sync(ctx context.Context, d repos.Descriptor) Result {
	run := &syncRun{
		ctx:    ctx,
		s:      s,
		d:      d,
		path:   s.layout.MirrorPath(d.Name),
		logger: s.logger.With(slog.String("repo", d.Name)),
	}
	run.result = Result{Descriptor: d, Path: run.path}

	for step := probeStep; step != nil; {
		step = step(run)
	}

	run.logger.Info("mirror reconciled",
		slog.String("outcome", run.result.Outcome.String()),
		slog.Bool("switched", run.result.Switched))
	return run.result
}

// =============================================================================
// State Machine
// =============================================================================
//
// probe ──► clone ──────────────────────────────► done
//   │
//   └────► fetch ──► switch ──► compare ──► done
//                                  │
//                                  └──► fastForward ──► done

// stepFunc is one state of a reconciliation; it returns the next state or
// nil when the outcome is final.
type stepFunc func(*syncRun) stepFunc

type syncRun struct {
	ctx    context.Context
	s      *Synchronizer
	d      repos.Descriptor
	path   string
	remote string
	state  State
	logger *slog.Logger
	result Result
}

func (r *syncRun) logf(format string, args ...any) {
	r.result.Log = append(r.result.Log, fmt.Sprintf(format, args...))
}

func (r *syncRun) git(dir string, args ...string) (string, error) {
	return r.s.git.Run(r.ctx, dir, args...)
}

func (r *syncRun) finish(outcome Outcome) stepFunc {
	r.result.Outcome = outcome
	return nil
}

func (r *syncRun) fail(err error) stepFunc {
	r.result.Outcome = Error
	r.result.Err = err
	r.logger.Warn("mirror sync failed", slog.String("error", err.Error()))
	return nil
}

func probeStep(r *syncRun) stepFunc {
	if IsClone(r.path) {
		return fetchStep
	}
	return cloneStep
}

func cloneStep(r *syncRun) stepFunc {
	r.logf("Initializing %s repository...", r.d.Name)

	parent := filepath.Dir(r.path)
	if err := storage.EnsureDir(parent, 0755); err != nil {
		r.logf("Failed to clone %s: %v", r.d.Name, err)
		return r.fail(fmt.Errorf("creating %s: %w", parent, err))
	}

	if _, err := r.git(parent, "clone", r.d.URL, r.path); err != nil {
		r.logf("Failed to clone %s: %v", r.d.Name, err)
		return r.fail(fmt.Errorf("cloning %s: %w", r.d.URL, err))
	}

	w, err := openWorkingCopy(r.path)
	if err != nil {
		r.logf("Failed to clone %s: %v", r.d.Name, err)
		return r.fail(err)
	}
	if current := w.currentBranch(); current != r.d.Branch {
		if _, err := r.git(r.path, "checkout", r.d.Branch); err != nil {
			r.logf("Warning: could not check out branch %s for %s: %v", r.d.Branch, r.d.Name, err)
			r.logger.Warn("checkout after clone failed",
				slog.String("branch", r.d.Branch),
				slog.String("error", err.Error()))
		} else {
			r.result.Switched = true
		}
	}

	if r.d.IsCore() {
		r.configureCoreRemotes()
	}

	r.logf("%s repository initialized at %s", r.d.Name, r.path)
	return r.finish(Initialized)
}

// configureCoreRemotes offers the fork workflow once, right after core is
// cloned. It has no bearing on the outcome.
func (r *syncRun) configureCoreRemotes() {
	if f := r.s.forker; f != nil && f.Available(r.ctx) {
		forkURL, err := f.Fork(r.ctx, r.d.URL)
		if err == nil {
			_, setErr := r.git(r.path, "remote", "set-url", remoteOrigin, forkURL)
			_, addErr := r.git(r.path, "remote", "add", remoteUpstream, r.d.URL)
			if err := errors.Join(setErr, addErr); err != nil {
				r.logf("Warning: fork created at %s but remotes could not be configured: %v", forkURL, err)
				return
			}
			r.logf("Forked %s to %s; origin now points at the fork", r.d.URL, forkURL)
			return
		}
		r.logf("Warning: could not fork %s: %v", r.d.URL, err)
	}

	if _, err := r.git(r.path, "remote", "add", remoteUpstream, r.d.URL); err != nil {
		r.logger.Debug("adding upstream remote failed", slog.String("error", err.Error()))
	}
}

func fetchStep(r *syncRun) stepFunc {
	r.logf("Fetching latest changes for %s...", r.d.Name)

	w, err := openWorkingCopy(r.path)
	if err != nil {
		return r.fail(err)
	}
	r.remote = w.preferredRemote()
	if r.remote == "" {
		r.remote = remoteOrigin
	}

	if _, err := r.git(r.path, "fetch", r.remote); err != nil {
		if errors.Is(err, ErrTimeout) {
			r.logf("Failed to fetch %s: %v", r.d.Name, err)
			return r.fail(err)
		}
		// A stale local copy is still usable; compare against cached refs.
		r.logger.Warn("fetch failed, using cached refs",
			slog.String("remote", r.remote),
			slog.String("error", err.Error()))
	}
	return switchStep
}

func switchStep(r *syncRun) stepFunc {
	w, err := openWorkingCopy(r.path)
	if err != nil {
		return r.fail(err)
	}

	current := w.currentBranch()
	if current == r.d.Branch {
		return compareStep
	}

	from := current
	if from == "" {
		from = "HEAD"
	}
	r.logf("Switching %s from '%s' to '%s'...", r.d.Name, from, r.d.Branch)

	var switchErr error
	switch {
	case w.hasLocalBranch(r.d.Branch):
		_, switchErr = r.git(r.path, "checkout", r.d.Branch)
	case w.hasRemoteBranch(r.remote, r.d.Branch):
		start := r.remote + "/" + r.d.Branch
		r.logf("Creating local branch '%s' tracking %s...", r.d.Branch, start)
		_, switchErr = r.git(r.path, "checkout", "-b", r.d.Branch, "--track", start)
	default:
		r.logf("Warning: Branch %s not found for %s", r.d.Branch, r.d.Name)
		return compareStep
	}

	if switchErr != nil {
		r.logf("Warning: could not switch %s to '%s': %v", r.d.Name, r.d.Branch, switchErr)
		r.logger.Warn("branch switch failed",
			slog.String("branch", r.d.Branch),
			slog.String("error", switchErr.Error()))
		return compareStep
	}

	r.result.Switched = true
	return compareStep
}

func compareStep(r *syncRun) stepFunc {
	state, err := Inspect(r.path)
	r.state = state
	if err != nil && !errors.Is(err, ErrNoHead) {
		r.logger.Warn("inspecting mirror failed", slog.String("error", err.Error()))
	}

	switch Classify(state) {
	case RelationEqual:
		return r.finish(r.settled())
	case RelationBehind:
		return fastForwardStep
	case RelationAhead, RelationDiverged:
		r.logf("%s has diverged from %s; leaving it unchanged", r.d.Name, shortRef(state.TrackingRef))
		return r.finish(BehindDiverged)
	default:
		r.logger.Info("upstream state unknown, proceeding with local copy",
			slog.String("tracking_ref", state.TrackingRef))
		return r.finish(r.settled())
	}
}

func fastForwardStep(r *syncRun) stepFunc {
	r.logf("Updating %s repository to latest version...", r.d.Name)

	if _, err := r.git(r.path, "merge", "--ff-only", r.state.TrackingRef); err != nil {
		r.logf("Failed to update %s repository", r.d.Name)
		return r.fail(fmt.Errorf("fast-forwarding to %s: %w", r.state.TrackingRef, err))
	}

	r.logf("✓ %s repository updated successfully", r.d.Name)
	return r.finish(FastForwarded)
}

// settled is the outcome when no update was needed.
func (r *syncRun) settled() Outcome {
	if r.result.Switched {
		return BranchSwitched
	}
	return UpToDate
}

func shortRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/remotes/")
}
