// Package catalog provides file-backed stand-ins for the pipeline services the
// dispatcher talks to, for running the peer without a production backend.
package catalog

import (
	"context"
	"fmt"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/dispatch"
	"github.com/rs/zerolog"
)

// Entry is one representation in the catalog file. An empty project makes
// it visible to every project.
type Entry struct {
	Project                 string `yaml:"project"`
	dispatch.Representation `yaml:",inline"`
}

// File is the YAML layout of a catalog.
type File struct {
	Representations []Entry `yaml:"representations"`
}

// Catalog resolves representations from an in-memory index.
type Catalog struct {
	byProject map[string]map[string]dispatch.Representation
	logger    zerolog.Logger
}

// New indexes the entries of f. Duplicate ids within a project are rejected.
func New(f File, logger zerolog.Logger) (*Catalog, error) {
	c := &Catalog{
		byProject: make(map[string]map[string]dispatch.Representation),
		logger:    logger.With().Str("com", "catalog").Logger(),
	}
	for i, entry := range f.Representations {
		if entry.ID == "" {
			return nil, fmt.Errorf("representation %d has no id", i)
		}
		reps, ok := c.byProject[entry.Project]
		if !ok {
			reps = make(map[string]dispatch.Representation)
			c.byProject[entry.Project] = reps
		}
		if _, dup := reps[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate representation %q in project %q", entry.ID, entry.Project)
		}
		reps[entry.ID] = entry.Representation
	}
	return c, nil
}

// Load reads a catalog file.
func Load(path string, logger zerolog.Logger) (*Catalog, error) {
	f, err := config.LoadConfig[File](path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c, err := New(*f, logger)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	c.logger.Debug().Str("catalog", path).Int("representations", len(f.Representations)).Msg("catalog loaded")
	return c, nil
}

// Resolve returns the known representations among ids, in request order.
// Project-specific entries shadow shared ones.
func (c *Catalog) Resolve(ctx context.Context, project string, ids []string) ([]dispatch.Representation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scoped := c.byProject[project]
	shared := c.byProject[""]

	reps := make([]dispatch.Representation, 0, len(ids))
	for _, id := range ids {
		if rep, ok := scoped[id]; ok {
			reps = append(reps, rep)
		} else if rep, ok := shared[id]; ok {
			reps = append(reps, rep)
		}
	}
	c.logger.Trace().Str("project", project).Int("requested", len(ids)).Int("resolved", len(reps)).Msg("resolved")
	return reps, nil
}
