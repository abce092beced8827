package easyconnect

import "github.com/meshonboard/ec-go/pkg/frame"

// EventType classifies Manager events.
type EventType uint8

const (
	// EventPhaseChanged - a session moved between phases.
	EventPhaseChanged EventType = iota

	// EventOnboarded - a session reached PhaseConfigured, for the first
	// time or after a reconfiguration.
	EventOnboarded

	// EventRoleChanged - the node upgraded from enrollee to proxy agent.
	EventRoleChanged

	// EventCCEChanged - CCE advertisement was switched on or off.
	EventCCEChanged

	// EventIntroduced - network introduction with a peer completed.
	EventIntroduced
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventPhaseChanged:
		return "PHASE_CHANGED"
	case EventOnboarded:
		return "ONBOARDED"
	case EventRoleChanged:
		return "ROLE_CHANGED"
	case EventCCEChanged:
		return "CCE_CHANGED"
	case EventIntroduced:
		return "INTRODUCED"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to handlers registered with OnEvent, after the
// Manager lock has been released.
type Event struct {
	Type EventType

	// PeerID and MAC identify the session's peer (session events).
	PeerID string
	MAC    frame.MAC

	// OldPhase and NewPhase are set for EventPhaseChanged.
	OldPhase Phase
	NewPhase Phase

	// Role is the node's role after the event.
	Role Role

	// CCE is the advertisement state for EventCCEChanged.
	CCE bool

	// Config is the delivered or applied configuration for EventOnboarded.
	Config *ConfigObject

	// Reason explains a failure-driven transition.
	Reason string
}

// EventHandler handles Manager events.
type EventHandler func(Event)
