// Package discovery aggregates the skills available in every mirror into a
// single inventory, keeping each skill attached to the repository it came
// from.
package discovery

import (
	"context"
	"log/slog"
	"os"

	"github.com/adalundhe/uni/core/storage"
	"github.com/adalundhe/uni/skills"
)

// Mirror is a repository name and the directory of its working copy.
type Mirror struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Entry is one skill found in a repository.
type Entry struct {
	Repository  string `json:"repository"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// Repository is the discovery result for one mirror with a skills root.
type Repository struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Listing string  `json:"listing"`
	Entries []Entry `json:"entries"`
}

// Inventory is the discovery result for a whole session.
type Inventory struct {
	// Repositories holds mirrors that have a skills root, in mirror order.
	Repositories []Repository `json:"repositories"`

	// Active holds every mirror whose directory exists, in mirror order.
	Active []Mirror `json:"activeRepositories"`
}

// Entries flattens the entries of every repository in order.
func (inv Inventory) Entries() []Entry {
	var out []Entry
	for _, r := range inv.Repositories {
		out = append(out, r.Entries...)
	}
	return out
}

// Config configures a Discoverer.
type Config struct {
	// Filter narrows listings and entries to skills matching a glob.
	Filter string

	// NewLister selects the listing facility of a mirror. Defaults to
	// NewLister.
	NewLister func(mirrorPath string) Lister

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Discoverer builds inventories.
type Discoverer struct {
	filter    string
	newLister func(string) Lister
	logger    *slog.Logger
}

// NewDiscoverer creates a Discoverer from cfg, applying defaults.
func NewDiscoverer(cfg Config) *Discoverer {
	if cfg.NewLister == nil {
		cfg.NewLister = NewLister
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discoverer{filter: cfg.Filter, newLister: cfg.NewLister, logger: cfg.Logger}
}

// Discover builds an inventory with the default configuration.
func Discover(ctx context.Context, mirrors []Mirror) Inventory {
	return NewDiscoverer(Config{}).Discover(ctx, mirrors)
}

// Discover inspects every mirror in order. It never fails: a listing
// facility error leaves that repository with an empty listing and no
// entries.
func (d *Discoverer) Discover(ctx context.Context, mirrors []Mirror) Inventory {
	inv := Inventory{Active: []Mirror{}, Repositories: []Repository{}}

	for _, m := range mirrors {
		if !isDir(m.Path) {
			continue
		}
		inv.Active = append(inv.Active, m)

		root := storage.SkillsRoot(m.Path)
		if !isDir(root) {
			continue
		}
		inv.Repositories = append(inv.Repositories, d.repository(ctx, m, root))
	}
	return inv
}

func (d *Discoverer) repository(ctx context.Context, m Mirror, root string) Repository {
	repo := Repository{Name: m.Name, Path: root, Entries: []Entry{}}
	logger := d.logger.With(slog.String("repo", m.Name))

	listing, err := d.newLister(m.Path).ListSkills(ctx, d.filter)
	if err != nil {
		logger.Warn("skill listing failed", slog.String("error", err.Error()))
		return repo
	}
	repo.Listing = listing

	match, err := CompileFilter(d.filter)
	if err != nil {
		logger.Warn("skill filter rejected", slog.String("error", err.Error()))
		return repo
	}

	found, err := skills.Find(root)
	if err != nil {
		logger.Warn("reading skills failed", slog.String("error", err.Error()))
		return repo
	}
	for _, s := range found {
		if !match(s.Dir) {
			continue
		}
		repo.Entries = append(repo.Entries, Entry{
			Repository:  m.Name,
			Name:        s.Dir,
			Category:    s.Category,
			Path:        s.Path,
			Description: s.Description,
		})
	}
	logger.Debug("skills discovered", slog.Int("count", len(repo.Entries)))
	return repo
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
