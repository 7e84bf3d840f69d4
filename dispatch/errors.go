package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnexpectedEvent is returned by Handle for events other than EventName.
	ErrUnexpectedEvent = errors.New("unexpected event")

	// ErrMalformedPayload means the event contents are not a valid load batch.
	ErrMalformedPayload = errors.New("malformed load payload")
)

// MissingRepresentationError reports ids the resolver does not know.
type MissingRepresentationError struct {
	Project string
	IDs     []string
}

func (e *MissingRepresentationError) Error() string {
	return fmt.Sprintf("missing representation in project %q: %s", e.Project, strings.Join(e.IDs, ", "))
}

// LoaderNotFoundError reports a loader absent from the discovered set while
// its category has members to load.
type LoaderNotFoundError struct {
	Project  string
	Name     string
	Category Category
}

func (e *LoaderNotFoundError) Error() string {
	return fmt.Sprintf("loader %q for %s not found in project %q", e.Name, e.Category, e.Project)
}
