package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/adalundhe/uni/core/storage"
)

// DefaultListingTimeout bounds a mirror-provided listing executable.
const DefaultListingTimeout = 30 * time.Second

var (
	// ErrListingFailed indicates a listing facility exited non-zero or could
	// not be run.
	ErrListingFailed = errors.New("listing facility failed")

	// ErrInvalidFilter indicates a filter pattern that does not compile.
	ErrInvalidFilter = errors.New("invalid filter pattern")
)

// Lister produces the human-readable skill listing of one repository.
type Lister interface {
	// ListSkills lists every skill when filter is empty, else only the
	// skills matching filter.
	ListSkills(ctx context.Context, filter string) (string, error)
}

// NewLister returns an ExecLister when the mirror ships its own listing
// executable and a DirLister over its skills root otherwise.
func NewLister(mirrorPath string) Lister {
	facility := storage.ListingFacility(mirrorPath)
	if info, err := os.Stat(facility); err == nil && !info.IsDir() {
		return &ExecLister{Path: facility, Dir: storage.SkillsRoot(mirrorPath)}
	}
	return &DirLister{Root: storage.SkillsRoot(mirrorPath)}
}

// =============================================================================
// ExecLister
// =============================================================================

// ExecLister delegates to an executable shipped inside the mirror.
type ExecLister struct {
	Path    string        // executable
	Dir     string        // working directory, empty for the caller's
	Timeout time.Duration // zero uses DefaultListingTimeout
}

// ListSkills runs the executable with filter as its only argument when
// set. Stdout is returned with trailing whitespace removed.
func (l *ExecLister) ListSkills(ctx context.Context, filter string) (string, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultListingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var args []string
	if filter != "" {
		args = append(args, filter)
	}

	cmd := exec.CommandContext(ctx, l.Path, args...)
	cmd.Dir = l.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s: %s", ErrListingFailed, l.Path, msg)
	}
	return strings.TrimRight(stdout.String(), " \t\r\n"), nil
}

// =============================================================================
// DirLister
// =============================================================================

// DirLister enumerates the immediate subdirectories of a skills root.
type DirLister struct {
	Root string
}

// ListSkills returns one directory name per line in lexicographic order.
// A non-empty filter is a glob matched against each name.
func (l *DirLister) ListSkills(_ context.Context, filter string) (string, error) {
	match, err := CompileFilter(filter)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrListingFailed, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && match(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return strings.Join(names, "\n"), nil
}

// CompileFilter compiles a glob pattern into a name predicate. The empty
// pattern matches everything.
func CompileFilter(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, pattern, err)
	}
	return g.Match, nil
}
