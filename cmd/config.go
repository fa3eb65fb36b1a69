package cmd

import (
	"log/slog"
	"os"

	"github.com/adalundhe/uni/core/discovery"
	"github.com/adalundhe/uni/core/mirror"
	"github.com/adalundhe/uni/core/repos"
	"github.com/adalundhe/uni/core/storage"
)

// runConfig is the validated configuration of one command invocation.
type runConfig struct {
	layout       storage.Layout
	settingsPath string
	store        *repos.Store
}

// loadRunConfig resolves the root, reads settings and builds the
// descriptor store. It never touches the root directory, so a rejected
// configuration leaves the filesystem as it was.
func loadRunConfig() (*runConfig, error) {
	settingsPath := resolveSettingsPath()
	settings, warning := repos.LoadSettings(settingsPath)
	if warning != "" {
		logger.Warn("settings ignored", slog.String("reason", warning))
	}

	store, err := loadStore(settings)
	if err != nil {
		return nil, err
	}

	return &runConfig{
		layout:       storage.NewLayout(rootDir),
		settingsPath: settingsPath,
		store:        store,
	}, nil
}

func resolveSettingsPath() string {
	if configPath != "" {
		return configPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return storage.SettingsPath(storage.DefaultWorkspace, cwd)
}

// loadStore uses the descriptor file and --repo flags when given, in that
// order, and the built-in list otherwise.
func loadStore(settings repos.Settings) (*repos.Store, error) {
	if reposFile == "" && len(repoTriples) == 0 {
		return repos.NewStore("built-in repositories", repos.DefaultTriples, settings)
	}

	var descriptors []repos.Descriptor
	source := "--repo"
	if reposFile != "" {
		fromFile, err := repos.LoadFile(reposFile)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, fromFile...)
		source = reposFile
	}

	for _, triple := range repoTriples {
		d, err := repos.ParseDescriptor(triple)
		if err != nil {
			return nil, &repos.ConfigError{Source: "--repo", Err: err}
		}
		descriptors = append(descriptors, d)
	}

	return repos.NewStoreFromDescriptors(source, descriptors, settings)
}

// mirrors lists the mirror directory of every descriptor in order.
func (c *runConfig) mirrors() []discovery.Mirror {
	descriptors := c.store.Descriptors()
	out := make([]discovery.Mirror, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, discovery.Mirror{Name: d.Name, Path: c.layout.MirrorPath(d.Name)})
	}
	return out
}

// newSynchronizer wires a synchronizer for c. The fork collaborator is
// only offered when fork is set.
func (c *runConfig) newSynchronizer(fork bool) *mirror.Synchronizer {
	var forker mirror.Forker
	if fork {
		forker = &mirror.GHForker{}
	}
	return mirror.NewSynchronizer(mirror.Config{
		Layout: c.layout,
		Forker: forker,
		Logger: logger,
	})
}
