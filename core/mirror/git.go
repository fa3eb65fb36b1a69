package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultNetworkTimeout bounds clone and fetch.
	DefaultNetworkTimeout = 2 * time.Minute

	// DefaultLocalTimeout bounds every other git command.
	DefaultLocalTimeout = 30 * time.Second
)

// Runner executes git subcommands in a directory and returns trimmed stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary as a subprocess with per-command deadlines.
type ExecRunner struct {
	// Binary is the git executable. Defaults to "git".
	Binary string

	// NetworkTimeout applies to clone and fetch. Zero uses the default.
	NetworkTimeout time.Duration

	// LocalTimeout applies to every other subcommand. Zero uses the default.
	LocalTimeout time.Duration
}

// NewExecRunner returns a runner with default timeouts.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Binary:         "git",
		NetworkTimeout: DefaultNetworkTimeout,
		LocalTimeout:   DefaultLocalTimeout,
	}
}

// Run executes git with args in dir.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("git: no subcommand")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeoutFor(args[0]))
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Dir = dir
	// A credential prompt would block the host session indefinitely.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: git %s after %s", ErrTimeout, args[0], r.timeoutFor(args[0]))
		}
		return "", parseGitError(args[0], err, stderr.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}

func (r *ExecRunner) binary() string {
	if r.Binary == "" {
		return "git"
	}
	return r.Binary
}

func (r *ExecRunner) timeoutFor(subcommand string) time.Duration {
	if isNetworkCommand(subcommand) {
		if r.NetworkTimeout > 0 {
			return r.NetworkTimeout
		}
		return DefaultNetworkTimeout
	}
	if r.LocalTimeout > 0 {
		return r.LocalTimeout
	}
	return DefaultLocalTimeout
}

func isNetworkCommand(subcommand string) bool {
	switch subcommand {
	case "clone", "fetch", "pull", "ls-remote":
		return true
	}
	return false
}

// parseGitError converts git command errors into appropriate error types.
func parseGitError(subcommand string, err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return ErrGitNotInstalled
	}
	if strings.Contains(stderr, "not a git repository") {
		return ErrNotCloned
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = exitErr.Error()
		}
		return fmt.Errorf("git %s failed: %s", subcommand, msg)
	}

	return err
}
