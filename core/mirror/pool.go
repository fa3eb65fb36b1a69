package mirror

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/adalundhe/uni/core/repos"
)

// Status marker prefixes appended to the rendered log. The reporter strips
// them and turns them back into flags.
const (
	MarkerUpdated = "UPDATED:"
	MarkerBehind  = "BEHIND:"
)

// Pool runs a Synchronizer over many descriptors with bounded parallelism.
type Pool struct {
	sync    *Synchronizer
	workers int
}

// NewPool returns a pool running at most workers syncs at once. Values
// below one mean sequential.
func NewPool(s *Synchronizer, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sync: s, workers: workers}
}

// Report is the ordered outcome of one pass over all descriptors.
type Report struct {
	Results []Result
	Summary Summary
}

// RunAll reconciles every descriptor. Results are returned in descriptor
// order regardless of completion order, and each result carries its own
// log lines so output stays deterministic.
func (p *Pool) RunAll(ctx context.Context, descriptors []repos.Descriptor) Report {
	results := make([]Result, len(descriptors))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			results[i] = p.sync.Sync(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Results: results, Summary: Summarize(results)}
}

// Log flattens every result's lines in descriptor order and appends the
// status markers.
func (r Report) Log() []string {
	var lines []string
	for _, res := range r.Results {
		lines = append(lines, res.Log...)
	}
	return append(lines,
		MarkerUpdated+strconv.FormatBool(r.Summary.AnyUpdated),
		MarkerBehind+strconv.FormatBool(r.Summary.AnyBehind),
	)
}
