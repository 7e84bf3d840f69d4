package catalog

import (
	"context"

	"github.com/Mmx233/rvlink/dispatch"
	"github.com/rs/zerolog"
)

// LogRegistry offers loaders that only log what they would load.
type LogRegistry struct {
	names  []string
	logger zerolog.Logger
}

// NewLogRegistry offers one logging loader per name.
func NewLogRegistry(logger zerolog.Logger, names ...string) *LogRegistry {
	return &LogRegistry{
		names:  names,
		logger: logger.With().Str("com", "loader").Logger(),
	}
}

func (r *LogRegistry) Discover(_ context.Context, _ string) ([]dispatch.Loader, error) {
	loaders := make([]dispatch.Loader, len(r.names))
	for i, name := range r.names {
		loaders[i] = logLoader{name: name, logger: r.logger}
	}
	return loaders, nil
}

type logLoader struct {
	name   string
	logger zerolog.Logger
}

func (l logLoader) Name() string {
	return l.name
}

func (l logLoader) Load(_ context.Context, rep dispatch.Representation, project string) error {
	l.logger.Info().
		Str("loader", l.name).
		Str("project", project).
		Str("representation", rep.ID).
		Str("name", rep.Name).
		Str("path", rep.Path).
		Msg("load container")
	return nil
}
