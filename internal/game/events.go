package game

// EventKind tags an inbound event variant.
type EventKind int

const (
	EventJoin EventKind = iota
	EventLeave
	EventPress
	EventRelease
	EventRegisterRequest
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventJoin:
		return "join"
	case EventLeave:
		return "leave"
	case EventPress:
		return "press"
	case EventRelease:
		return "release"
	case EventRegisterRequest:
		return "register_request"
	case EventTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is one inbound occurrence routed through the session loop. Events
// are processed one at a time in arrival order, which is what guarantees
// registry and arbitration state are never mutated concurrently.
type Event struct {
	Kind    EventKind
	BadgeID string
	Button  Button

	// Timestamp is the bus-provided press/release time in milliseconds.
	Timestamp int64
}
