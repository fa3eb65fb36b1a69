// Package mirror keeps local clones of skill repositories current with their
// remote branches. Each repository is reconciled by a small state machine
// that clones, fetches, switches branches and fast-forwards when that is
// safe, and otherwise reports the mirror as behind for an operator to
// resolve.
package mirror

import (
	"errors"

	"github.com/adalundhe/uni/core/repos"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotCloned indicates the mirror path is not a git working copy.
	ErrNotCloned = errors.New("path is not a git repository")

	// ErrGitNotInstalled indicates the git binary could not be found.
	ErrGitNotInstalled = errors.New("git is not installed or not in PATH")

	// ErrTimeout indicates a git subprocess exceeded its deadline.
	ErrTimeout = errors.New("git operation timed out")

	// ErrNoHead indicates the repository has no commits on HEAD.
	ErrNoHead = errors.New("repository has no HEAD reference")

	// ErrForkUnavailable indicates no fork-capable collaborator is usable.
	ErrForkUnavailable = errors.New("fork collaborator unavailable")
)

// =============================================================================
// Outcome
// =============================================================================

// Outcome is the result of reconciling one mirror.
type Outcome int

const (
	// Error means a clone or fast-forward failed; the mirror may be stale.
	Error Outcome = iota

	// Initialized means the mirror was freshly cloned.
	Initialized

	// FastForwarded means the local branch advanced to the remote.
	FastForwarded

	// UpToDate means local and remote point at the same commit, or the
	// relationship could not be determined and the local copy is used as is.
	UpToDate

	// BehindDiverged means local and remote have diverged, or local has
	// commits the remote lacks. Nothing is changed.
	BehindDiverged

	// BranchSwitched means the working copy moved to the configured branch
	// and needed no further update.
	BranchSwitched
)

var outcomeNames = map[Outcome]string{
	Error:          "error",
	Initialized:    "initialized",
	FastForwarded:  "fast_forwarded",
	UpToDate:       "up_to_date",
	BehindDiverged: "behind_diverged",
	BranchSwitched: "branch_switched",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// =============================================================================
// State
// =============================================================================

// State is the inspected condition of a working copy. It is computed fresh
// on every call and never persisted.
type State struct {
	Path          string
	CurrentBranch string // empty when HEAD is detached or unborn
	RemoteName    string // "upstream", "origin" or empty
	TrackingRef   string // full ref name compared against HEAD
	LocalCommit   string
	RemoteCommit  string
	MergeBase     string
}

// Relation classifies LocalCommit against RemoteCommit.
type Relation int

const (
	RelationUnknown Relation = iota
	RelationEqual
	RelationBehind   // local is a strict ancestor of remote
	RelationAhead    // remote is a strict ancestor of local
	RelationDiverged // neither is an ancestor of the other
)

var relationNames = map[Relation]string{
	RelationUnknown:  "unknown",
	RelationEqual:    "up to date",
	RelationBehind:   "behind",
	RelationAhead:    "ahead",
	RelationDiverged: "diverged",
}

func (r Relation) String() string {
	if name, ok := relationNames[r]; ok {
		return name
	}
	return "unknown"
}

// Classify derives the relation between local and remote from s.
func Classify(s State) Relation {
	switch {
	case s.LocalCommit == "" || s.RemoteCommit == "":
		return RelationUnknown
	case s.LocalCommit == s.RemoteCommit:
		return RelationEqual
	case s.MergeBase == s.LocalCommit:
		return RelationBehind
	case s.MergeBase == s.RemoteCommit:
		return RelationAhead
	default:
		return RelationDiverged
	}
}

// =============================================================================
// Result
// =============================================================================

// Result records the reconciliation of one descriptor.
type Result struct {
	Descriptor repos.Descriptor
	Path       string
	Outcome    Outcome
	Err        error    // set when Outcome is Error
	Switched   bool     // the working copy changed branch this run
	Log        []string // operator-facing lines, in order
}

// Updated reports whether the mirror received new commits.
func (r Result) Updated() bool {
	return r.Outcome == FastForwarded
}

// Behind reports whether the mirror needs operator attention.
func (r Result) Behind() bool {
	return r.Outcome == BehindDiverged
}

// Summary holds the session-wide flags derived from all results.
type Summary struct {
	AnyUpdated bool `json:"anyUpdated"`
	AnyBehind  bool `json:"anyBehind"`
}

// Summarize folds results into a Summary.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.AnyUpdated = s.AnyUpdated || r.Updated()
		s.AnyBehind = s.AnyBehind || r.Behind()
	}
	return s
}
