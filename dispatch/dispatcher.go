package dispatch

import (
	"context"
	"fmt"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/metrics"
	"github.com/Mmx233/rvlink/protocol"
	"github.com/rs/zerolog"
)

// Dispatcher turns load_container events into loader calls.
// It keeps no state between events, so handling the same payload twice
// loads everything twice.
type Dispatcher struct {
	project    string
	loaders    map[Category]string
	classifier *Classifier
	resolver   Resolver
	registry   Registry
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records load results on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a Dispatcher. cfg should have defaults applied.
func New(cfg config.Dispatch, resolver Resolver, registry Registry, logger zerolog.Logger, opts ...Option) *Dispatcher {
	var image, video []string
	if len(cfg.ImageExtensions) > 0 {
		image = cfg.ImageExtensions
	}
	if len(cfg.VideoExtensions) > 0 {
		video = cfg.VideoExtensions
	}

	d := &Dispatcher{
		project: cfg.Project,
		loaders: map[Category]string{
			CategoryFrames: cfg.FramesLoader,
			CategoryMovie:  cfg.MovieLoader,
		},
		classifier: NewClassifier(image, video),
		resolver:   resolver,
		registry:   registry,
		logger:     logger.With().Str("com", "dispatcher").Str("project", cfg.Project).Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle dispatches ev, which must be a load_container event.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	if ev.Name() != EventName {
		return fmt.Errorf("%w: %q, want %q", ErrUnexpectedEvent, ev.Name(), EventName)
	}
	return d.HandleContents(ctx, []byte(ev.Contents()))
}

type classified struct {
	rep      Representation
	category Category
}

// HandleContents resolves every request of a JSON load batch in one lookup
// and hands each representation to the loader of its category, in resolved
// order. Unmatched extensions are skipped with a warning.
func (d *Dispatcher) HandleContents(ctx context.Context, raw []byte) error {
	requests, err := protocol.DecodeLoadRequests(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if len(requests) == 0 {
		d.logger.Debug().Msg("empty load batch")
		return nil
	}

	ids := make([]string, len(requests))
	byID := make(map[string][]protocol.LoadRequest, len(requests))
	for i, req := range requests {
		if req.Representation == "" {
			return fmt.Errorf("%w: item %d has no representation", ErrMalformedPayload, i)
		}
		ids[i] = req.Representation
		byID[req.Representation] = append(byID[req.Representation], req)
	}
	d.logger.Debug().Strs("representations", ids).Msg("resolving load batch")

	reps, err := d.resolver.Resolve(ctx, d.project, ids)
	if err != nil {
		return fmt.Errorf("resolve representations: %w", err)
	}
	if err := d.checkResolved(ids, reps); err != nil {
		return err
	}

	items := make([]classified, 0, len(reps))
	needed := make(map[Category]bool, 2)
	for _, rep := range reps {
		req := nextRequest(byID, rep.ID)
		ext := extensionFor(rep, req.Extension, req.ObjectName, rep.Name)
		category := d.classifier.Classify(ext)
		if category == CategoryUnmatched {
			d.metrics.Unmatched()
			d.logger.Warn().
				Str("representation", rep.ID).
				Str("extension", ext).
				Msg("no loader for extension, skipped")
			continue
		}
		items = append(items, classified{rep: rep, category: category})
		needed[category] = true
	}
	if len(items) == 0 {
		return nil
	}

	loaders, err := d.lookupLoaders(ctx, needed)
	if err != nil {
		return err
	}

	for _, item := range items {
		loader := loaders[item.category]
		err := loader.Load(ctx, item.rep, d.project)
		d.metrics.Load(string(item.category), err)
		if err != nil {
			return fmt.Errorf("load %s with %s: %w", item.rep.ID, loader.Name(), err)
		}
		d.logger.Info().
			Str("representation", item.rep.ID).
			Str("loader", loader.Name()).
			Msg("loaded")
	}
	return nil
}

// nextRequest pairs a resolved representation with the request that asked
// for it. A batch naming the same id twice is paired in request order; the
// last request keeps serving any further copies the resolver returns.
func nextRequest(byID map[string][]protocol.LoadRequest, id string) protocol.LoadRequest {
	queue := byID[id]
	if len(queue) == 0 {
		return protocol.LoadRequest{Representation: id}
	}
	req := queue[0]
	if len(queue) > 1 {
		byID[id] = queue[1:]
	}
	return req
}

// checkResolved fails when an id came back unresolved.
func (d *Dispatcher) checkResolved(ids []string, reps []Representation) error {
	found := make(map[string]struct{}, len(reps))
	for _, rep := range reps {
		found[rep.ID] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	if len(missing) > 0 {
		return &MissingRepresentationError{Project: d.project, IDs: missing}
	}
	return nil
}

// lookupLoaders finds the loader of every needed category by name.
func (d *Dispatcher) lookupLoaders(ctx context.Context, needed map[Category]bool) (map[Category]Loader, error) {
	available, err := d.registry.Discover(ctx, d.project)
	if err != nil {
		return nil, fmt.Errorf("discover loaders: %w", err)
	}
	byName := make(map[string]Loader, len(available))
	for _, loader := range available {
		byName[loader.Name()] = loader
	}

	loaders := make(map[Category]Loader, len(needed))
	for _, category := range []Category{CategoryFrames, CategoryMovie} {
		if !needed[category] {
			continue
		}
		name := d.loaders[category]
		loader, ok := byName[name]
		if !ok {
			return nil, &LoaderNotFoundError{Project: d.project, Name: name, Category: category}
		}
		loaders[category] = loader
	}
	return loaders, nil
}
