package mirror

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	remoteUpstream = "upstream"
	remoteOrigin   = "origin"
)

// workingCopy wraps an opened repository for read-only inspection.
type workingCopy struct {
	path string
	repo *gogit.Repository
}

// openWorkingCopy opens the repository at path. Paths that do not exist or
// hold no repository return ErrNotCloned.
func openWorkingCopy(path string) (*workingCopy, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, ErrNotCloned
		}
		return nil, fmt.Errorf("%w: %v", ErrNotCloned, err)
	}
	return &workingCopy{path: path, repo: repo}, nil
}

// IsClone reports whether path holds a repository go-git can open.
func IsClone(path string) bool {
	_, err := openWorkingCopy(path)
	return err == nil
}

// currentBranch returns the checked-out branch, or "" when detached/unborn.
func (w *workingCopy) currentBranch() string {
	ref, err := w.repo.Head()
	if err != nil || !ref.Name().IsBranch() {
		return ""
	}
	return ref.Name().Short()
}

// hasRemote reports whether a remote named name is configured.
func (w *workingCopy) hasRemote(name string) bool {
	_, err := w.repo.Remote(name)
	return err == nil
}

// preferredRemote returns "upstream" when configured, else "origin" when
// configured, else "".
func (w *workingCopy) preferredRemote() string {
	switch {
	case w.hasRemote(remoteUpstream):
		return remoteUpstream
	case w.hasRemote(remoteOrigin):
		return remoteOrigin
	}
	return ""
}

func (w *workingCopy) refHash(name plumbing.ReferenceName) (string, bool) {
	ref, err := w.repo.Reference(name, true)
	if err != nil {
		return "", false
	}
	return ref.Hash().String(), true
}

func (w *workingCopy) hasLocalBranch(branch string) bool {
	_, ok := w.refHash(plumbing.NewBranchReferenceName(branch))
	return ok
}

func (w *workingCopy) hasRemoteBranch(remote, branch string) bool {
	_, ok := w.refHash(plumbing.NewRemoteReferenceName(remote, branch))
	return ok
}

// trackingRef picks the ref HEAD is compared against: the preferred
// remote's branch of the same name when it exists, else the branch's
// configured upstream.
func (w *workingCopy) trackingRef(remote, branch string) plumbing.ReferenceName {
	if branch == "" {
		return ""
	}
	if remote != "" && w.hasRemoteBranch(remote, branch) {
		return plumbing.NewRemoteReferenceName(remote, branch)
	}

	cfg, err := w.repo.Config()
	if err != nil {
		return ""
	}
	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Remote == "." || !b.Merge.IsBranch() {
		return ""
	}
	name := plumbing.NewRemoteReferenceName(b.Remote, b.Merge.Short())
	if _, ok := w.refHash(name); !ok {
		return ""
	}
	return name
}

// mergeBase returns the best common ancestor of local and remote. When
// local itself is one of the merge bases it is returned, so an ancestor
// check against the result is exact.
func (w *workingCopy) mergeBase(local, remote string) (string, error) {
	localCommit, err := w.repo.CommitObject(plumbing.NewHash(local))
	if err != nil {
		return "", fmt.Errorf("reading commit %s: %w", local, err)
	}
	remoteCommit, err := w.repo.CommitObject(plumbing.NewHash(remote))
	if err != nil {
		return "", fmt.Errorf("reading commit %s: %w", remote, err)
	}

	bases, err := localCommit.MergeBase(remoteCommit)
	if err != nil {
		return "", fmt.Errorf("computing merge base: %w", err)
	}
	if len(bases) == 0 {
		return "", nil
	}
	for _, base := range bases {
		if h := base.Hash.String(); h == local || h == remote {
			return h, nil
		}
	}
	return bases[0].Hash.String(), nil
}

func (w *workingCopy) state() (State, error) {
	s := State{
		Path:          w.path,
		CurrentBranch: w.currentBranch(),
		RemoteName:    w.preferredRemote(),
	}

	head, err := w.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return s, ErrNoHead
		}
		return s, err
	}
	s.LocalCommit = head.Hash().String()

	tracking := w.trackingRef(s.RemoteName, s.CurrentBranch)
	if tracking == "" {
		return s, nil
	}
	s.TrackingRef = tracking.String()
	s.RemoteCommit, _ = w.refHash(tracking)

	if s.LocalCommit == s.RemoteCommit {
		s.MergeBase = s.LocalCommit
		return s, nil
	}

	base, err := w.mergeBase(s.LocalCommit, s.RemoteCommit)
	if err != nil {
		return s, err
	}
	s.MergeBase = base
	return s, nil
}

// Inspect computes the State of the working copy at path without touching
// the network or the working tree.
func Inspect(path string) (State, error) {
	w, err := openWorkingCopy(path)
	if err != nil {
		return State{Path: path}, err
	}
	return w.state()
}
