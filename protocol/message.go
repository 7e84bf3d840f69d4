package protocol

// Frame types understood on the control port
const (
	TypeMessage         = "MESSAGE"         // Application message, body is free text
	TypePing            = "PING"            // Keepalive probe from the peer
	TypePong            = "PONG"            // Keepalive answer
	TypeGreeting        = "GREETING"        // Peer greeting
	TypeNewGreeting     = "NEWGREETING"     // Client greeting, "<name> rvController"
	TypePingPongControl = "PINGPONGCONTROL" // Opt in/out of peer pings
	TypeReturn          = "RETURN"          // Reply to a RETURNEVENT
)

// Reserved message bodies and event verbs carried inside MESSAGE frames
const (
	BodyDisconnect = "DISCONNECT"

	VerbReturnEvent = "RETURNEVENT"
	VerbEvent       = "EVENT"

	// EventTargetAll is the target token the client always sends.
	EventTargetAll = "*"

	// ControllerRole is appended to the client name in NEWGREETING.
	ControllerRole = "rvController"
)

// Frame is one protocol message unit: TYPE LENGTH PAYLOAD.
type Frame struct {
	Type    string
	Payload []byte
}

// Body returns the payload as text.
func (f Frame) Body() string {
	return string(f.Payload)
}

// IsDisconnect reports whether the frame is a MESSAGE asking to end the session.
func (f Frame) IsDisconnect() bool {
	return f.Type == TypeMessage && string(f.Payload) == BodyDisconnect
}
