package peer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mmx233/rvlink/dispatch"
	"github.com/Mmx233/rvlink/protocol"
)

// ErrNoRoute is returned by Router for events without a handler.
var ErrNoRoute = errors.New("no handler for event")

// Event is a remote event received from a controller.
type Event struct {
	body   protocol.EventBody
	client string
}

// NewEvent builds an event as if it arrived without a sender name.
func NewEvent(name, contents string) *Event {
	return &Event{body: protocol.EventBody{Name: name, Contents: contents}}
}

func (e *Event) Name() string     { return e.body.Name }
func (e *Event) Contents() string { return e.body.Contents }
func (e *Event) Target() string   { return e.body.Target }

// Client returns the name the sender greeted with.
func (e *Event) Client() string { return e.client }

// WantsReturn reports whether the sender expects a RETURN frame.
func (e *Event) WantsReturn() bool { return e.body.WantsReturn() }

// EventHandler handles remote events. The returned string is sent back in
// the RETURN frame when the sender asked for one.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *Event) (string, error)
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, ev *Event) (string, error)

func (f HandlerFunc) HandleEvent(ctx context.Context, ev *Event) (string, error) {
	return f(ctx, ev)
}

// Router routes events to handlers by event name.
type Router struct {
	routes map[string]EventHandler
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]EventHandler)}
}

// Handle registers h for name, replacing any previous handler.
func (r *Router) Handle(name string, h EventHandler) {
	r.routes[name] = h
}

func (r *Router) HandleEvent(ctx context.Context, ev *Event) (string, error) {
	h, ok := r.routes[ev.Name()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoRoute, ev.Name())
	}
	return h.HandleEvent(ctx, ev)
}

// DispatchHandler feeds load_container events to d. The reply is empty.
func DispatchHandler(d *dispatch.Dispatcher) EventHandler {
	return HandlerFunc(func(ctx context.Context, ev *Event) (string, error) {
		return "", d.Handle(ctx, ev)
	})
}
