package dispatch

import (
	"context"

	"github.com/Mmx233/rvlink/protocol"
)

// EventName is the only event a Dispatcher handles.
const EventName = protocol.EventLoadContainer

// Event is a remote event as seen inside the review application.
type Event interface {
	Name() string
	Contents() string
}

// Representation is one concrete, versioned media asset.
type Representation struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Path      string         `yaml:"path" json:"path"`
	Extension string         `yaml:"extension,omitempty" json:"extension,omitempty"`
	Context   map[string]any `yaml:"context,omitempty" json:"context,omitempty"`
}

// Resolver looks representations up by id in a single batch.
// Unknown ids are left out of the result.
type Resolver interface {
	Resolve(ctx context.Context, project string, ids []string) ([]Representation, error)
}

// Loader imports one category of media into the host application.
type Loader interface {
	Name() string
	Load(ctx context.Context, rep Representation, project string) error
}

// Registry discovers the loaders available for a project.
type Registry interface {
	Discover(ctx context.Context, project string) ([]Loader, error)
}
