package protocol

import (
	"fmt"
	"strings"
)

// EventBody is a remote event carried as a MESSAGE body:
// "<VERB> <name> <target> <contents>".
type EventBody struct {
	Verb     string // VerbReturnEvent or VerbEvent
	Name     string
	Target   string
	Contents string
}

// FormatReturnEvent builds "RETURNEVENT <name> * <contents>".
func FormatReturnEvent(name, contents string) string {
	return VerbReturnEvent + " " + name + " " + EventTargetAll + " " + contents
}

// FormatEvent builds "EVENT <name> * <contents>", an event with no reply.
func FormatEvent(name, contents string) string {
	return VerbEvent + " " + name + " " + EventTargetAll + " " + contents
}

// ParseEventBody splits a MESSAGE body into an event.
// ok is false when the body is not an EVENT or RETURNEVENT.
func ParseEventBody(body string) (EventBody, bool, error) {
	verb, rest, _ := strings.Cut(body, " ")
	if verb != VerbReturnEvent && verb != VerbEvent {
		return EventBody{}, false, nil
	}

	name, rest, found := strings.Cut(rest, " ")
	if name == "" {
		return EventBody{}, true, fmt.Errorf("%s without event name", verb)
	}
	if !found {
		return EventBody{}, true, fmt.Errorf("%s %s without target", verb, name)
	}
	target, contents, _ := strings.Cut(rest, " ")
	if target == "" {
		return EventBody{}, true, fmt.Errorf("%s %s without target", verb, name)
	}

	return EventBody{
		Verb:     verb,
		Name:     name,
		Target:   target,
		Contents: contents,
	}, true, nil
}

// WantsReturn reports whether the sender blocks on a RETURN frame.
func (e EventBody) WantsReturn() bool {
	return e.Verb == VerbReturnEvent
}
