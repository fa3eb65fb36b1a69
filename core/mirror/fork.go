package mirror

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
)

// Forker is a collaborator able to fork a repository for the current user.
type Forker interface {
	// Available reports whether forking can be attempted right now.
	Available(ctx context.Context) bool

	// Fork creates (or finds) the user's fork of url and returns its clone URL.
	Fork(ctx context.Context, url string) (string, error)
}

// GHForker forks through the GitHub CLI.
type GHForker struct {
	// Binary is the gh executable. Defaults to "gh".
	Binary string
}

func (f *GHForker) binary() string {
	if f.Binary == "" {
		return "gh"
	}
	return f.Binary
}

// Available reports whether gh is installed and authenticated.
func (f *GHForker) Available(ctx context.Context) bool {
	if _, err := exec.LookPath(f.binary()); err != nil {
		return false
	}
	return exec.CommandContext(ctx, f.binary(), "auth", "status").Run() == nil
}

// Fork forks url without cloning and returns the fork's https URL.
func (f *GHForker) Fork(ctx context.Context, url string) (string, error) {
	name := repoName(url)
	if name == "" {
		return "", fmt.Errorf("%w: cannot derive repository name from %q", ErrForkUnavailable, url)
	}

	fork := exec.CommandContext(ctx, f.binary(), "repo", "fork", url, "--clone=false", "--remote=false")
	if out, err := fork.CombinedOutput(); err != nil {
		return "", fmt.Errorf("gh repo fork: %w: %s", err, strings.TrimSpace(string(out)))
	}

	out, err := exec.CommandContext(ctx, f.binary(), "api", "user", "--jq", ".login").Output()
	if err != nil {
		return "", fmt.Errorf("gh api user: %w", err)
	}
	login := strings.TrimSpace(string(out))
	if login == "" {
		return "", errors.New("gh api user: empty login")
	}
	return "https://github.com/" + login + "/" + name + ".git", nil
}

// repoName extracts the final path element of a clone URL without ".git".
func repoName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	name := path.Base(strings.ReplaceAll(url, ":", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
