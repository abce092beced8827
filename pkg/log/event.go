package log

import (
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
)

// MaxFrameDataSize is the largest frame payload copied into an event.
const MaxFrameDataSize = 2048

// Event is one captured onboarding event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the onboarding session (UUID), empty for
	// node-level events.
	SessionID string `cbor:"2,keyasint,omitempty"`

	Direction Direction `cbor:"3,keyasint"`

	// Carrier the frame travelled on.
	Carrier Carrier `cbor:"4,keyasint"`

	Category Category `cbor:"5,keyasint"`

	// LocalRole is the node's role when the event was captured.
	LocalRole Role `cbor:"6,keyasint"`

	// PeerMAC is the over-the-air or AL address of the peer.
	PeerMAC string `cbor:"7,keyasint,omitempty"`

	// PeerID is the hex bootstrapping key hash of the enrollee.
	PeerID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Carrier identifies how a message reached or left the node.
type Carrier uint8

const (
	// CarrierNone marks events not tied to a frame.
	CarrierNone Carrier = 0
	// CarrierAction is a DPP vendor public action frame.
	CarrierAction Carrier = 1
	// CarrierGAS is a GAS public action frame.
	CarrierGAS Carrier = 2
	// CarrierEncap is a 1905 Encap DPP TLV over the backhaul.
	CarrierEncap Carrier = 3
	// CarrierChirp is a 1905 DPP Chirp Value TLV.
	CarrierChirp Carrier = 4
)

// String returns the carrier name.
func (c Carrier) String() string {
	switch c {
	case CarrierNone:
		return "NONE"
	case CarrierAction:
		return "ACTION"
	case CarrierGAS:
		return "GAS"
	case CarrierEncap:
		return "ENCAP"
	case CarrierChirp:
		return "CHIRP"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role is the node's onboarding role.
type Role uint8

const (
	RoleController Role = 0
	RoleProxyAgent Role = 1
	RoleEnrollee   Role = 2
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleController:
		return "CONTROLLER"
	case RoleProxyAgent:
		return "PROXY_AGENT"
	case RoleEnrollee:
		return "ENROLLEE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a DPP frame crossing the engine boundary.
type FrameEvent struct {
	// Type is the DPP frame type, or frame.TypeGAS for GAS frames.
	Type frame.Type `cbor:"1,keyasint"`

	// Size is the full frame size in bytes.
	Size int `cbor:"2,keyasint"`

	// Data is the raw frame (may be truncated for large frames).
	Data []byte `cbor:"3,keyasint,omitempty"`

	Truncated bool `cbor:"4,keyasint,omitempty"`

	// Status is the DPP status attribute, if the frame carried one.
	Status *frame.Status `cbor:"5,keyasint,omitempty"`
}

// NewFrameEvent builds a FrameEvent, truncating data to MaxFrameDataSize.
func NewFrameEvent(t frame.Type, data []byte) *FrameEvent {
	fe := &FrameEvent{Type: t, Size: len(data)}
	if len(data) > MaxFrameDataSize {
		fe.Data = append([]byte(nil), data[:MaxFrameDataSize]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}

// StateChangeEvent captures session phase, role and CCE transitions.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession is an onboarding session phase change.
	StateEntitySession StateEntity = 0
	// StateEntityRole is a node role change.
	StateEntityRole StateEntity = 1
	// StateEntityCCE is a CCE advertisement change.
	StateEntityCCE StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityRole:
		return "ROLE"
	case StateEntityCCE:
		return "CCE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a rejected input or failed operation.
type ErrorEventData struct {
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
