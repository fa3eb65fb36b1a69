package discovery

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLister is a mock implementation of Lister.
type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListSkills(ctx context.Context, filter string) (string, error) {
	args := m.Called(ctx, filter)
	return args.String(0), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMirror lays out a mirror with the given skill paths relative to its
// skills root, each holding a SKILL.md with a description.
func newMirror(t *testing.T, root, name string, skillPaths ...string) Mirror {
	t.Helper()

	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "skills"), 0755))
	for _, p := range skillPaths {
		dir := filepath.Join(path, "skills", filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(dir, 0755))
		content := "---\ndescription: " + filepath.Base(p) + " skill\n---\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0644))
	}
	return Mirror{Name: name, Path: path}
}

// writeFacility installs a listing executable running script under sh.
func writeFacility(t *testing.T, m Mirror, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("listing scripts need a POSIX shell")
	}

	dir := filepath.Join(m.Path, "skills", "using-skills")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "find-skills"), []byte("#!/bin/sh\n"+script+"\n"), 0755))
}
