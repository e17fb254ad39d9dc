package checks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"golang.org/x/sync/errgroup"
)

// Checker verifies one aspect of a bindings repository.
type Checker interface {
	// Name returns the check identifier (e.g. "license", "gir-files").
	Name() string
	// Check inspects folder, writes its findings to out and reports whether
	// the folder passed. A non-nil error means the check could not run.
	Check(ctx context.Context, folder string, out io.Writer) (bool, error)
}

// Registry holds registered checks.
type Registry struct {
	checks []Checker
	limit  int
}

// NewRegistry creates a new check registry.
func NewRegistry() *Registry {
	return &Registry{limit: 1}
}

// Register adds a check to the registry.
func (r *Registry) Register(c Checker) {
	r.checks = append(r.checks, c)
}

// Get returns the check with the given name, or nil if not found.
func (r *Registry) Get(name string) Checker {
	for _, c := range r.checks {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// All returns all registered checks.
func (r *Registry) All() []Checker {
	return r.checks
}

// SetLimit bounds the number of checks running at the same time.
func (r *Registry) SetLimit(n int) {
	if n < 1 {
		n = 1
	}
	r.limit = n
}

type job struct {
	check  Checker
	folder string
	buf    bytes.Buffer
	ok     bool
}

// Run executes the named checks (all of them when names is empty) on every
// folder. Checks run concurrently; their output is written to out in folder
// then registration order once all are done. It reports whether every check
// passed.
func (r *Registry) Run(ctx context.Context, folders, names []string, out io.Writer) (bool, error) {
	selected, err := r.selectChecks(names)
	if err != nil {
		return false, err
	}

	var jobs []*job
	for _, folder := range folders {
		for _, c := range selected {
			jobs = append(jobs, &job{check: c, folder: folder})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := j.check.Check(ctx, j.folder, &j.buf)
			if err != nil {
				log.Printf("[checks] %s on %s: %v", j.check.Name(), j.folder, err)
				fmt.Fprintf(&j.buf, "xx> %v\n", err)
				ok = false
			}
			j.ok = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("running checks: %w", err)
	}

	passed := true
	for _, j := range jobs {
		if _, err := out.Write(j.buf.Bytes()); err != nil {
			return false, fmt.Errorf("writing check output: %w", err)
		}
		passed = passed && j.ok
	}
	return passed, nil
}

func (r *Registry) selectChecks(names []string) ([]Checker, error) {
	if len(names) == 0 {
		return r.checks, nil
	}
	var selected []Checker
	for _, name := range names {
		c := r.Get(name)
		if c == nil {
			return nil, fmt.Errorf("unknown check %q", name)
		}
		selected = append(selected, c)
	}
	return selected, nil
}
