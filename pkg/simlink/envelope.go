package simlink

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/meshonboard/ec-go/pkg/frame"
)

// MaxDatagramSize bounds a single envelope on the wire.
const MaxDatagramSize = 65507

// Kind identifies what an envelope carries.
type Kind uint8

const (
	// KindAction is a DPP public action frame on the radio.
	KindAction Kind = iota + 1
	// KindGAS is a GAS frame on the radio.
	KindGAS
	// KindChirp is a 1905 chirp notification.
	KindChirp
	// KindEncap is a 1905 proxied encapsulated DPP message.
	KindEncap
	// KindBeacon announces a change of the CCE information element.
	KindBeacon
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAction:
		return "ACTION"
	case KindGAS:
		return "GAS"
	case KindChirp:
		return "CHIRP"
	case KindEncap:
		return "ENCAP"
	case KindBeacon:
		return "BEACON"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// radio reports whether the kind is addressed by radio MAC.
func (k Kind) radio() bool {
	return k == KindAction || k == KindGAS || k == KindBeacon
}

// Envelope is one datagram on the simulated link.
type Envelope struct {
	Kind Kind `cbor:"1,keyasint"`

	// Src and Dst are radio MACs for radio kinds and AL MACs otherwise.
	// A zero or broadcast Dst reaches every receiver.
	Src frame.MAC `cbor:"2,keyasint"`
	Dst frame.MAC `cbor:"3,keyasint"`

	Payload []byte `cbor:"4,keyasint,omitempty"`

	// Chirp accompanies KindEncap when the sender attached one.
	Chirp []byte `cbor:"5,keyasint,omitempty"`

	// CCE is the advertised state for KindBeacon.
	CCE bool `cbor:"6,keyasint,omitempty"`
}

// Envelope errors.
var (
	ErrInvalidEnvelope = errors.New("invalid envelope")
	ErrTooLarge        = errors.New("envelope too large")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("simlink: CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxArrayElements: 16,
		MaxMapPairs:      16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("simlink: CBOR decoder mode: %v", err))
	}
}

// Encode serializes the envelope.
func (e *Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(e)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	return data, nil
}

// Validate checks that the envelope is well formed.
func (e *Envelope) Validate() error {
	if e.Kind < KindAction || e.Kind > KindBeacon {
		return fmt.Errorf("%w: kind %d", ErrInvalidEnvelope, e.Kind)
	}
	if e.Kind != KindBeacon && len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrInvalidEnvelope, e.Kind)
	}
	if len(e.Chirp) > 0 && e.Kind != KindEncap {
		return fmt.Errorf("%w: chirp on %s", ErrInvalidEnvelope, e.Kind)
	}
	return nil
}

// DecodeEnvelope parses a datagram.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := decMode.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// addressedTo reports whether a receiver with the given addresses should
// accept the envelope.
func (e *Envelope) addressedTo(mac, al frame.MAC) bool {
	self := al
	if e.Kind.radio() {
		self = mac
	}
	if e.Src == self && !self.IsZero() {
		return false
	}
	return e.Dst.IsZero() || e.Dst.IsBroadcast() || e.Dst == self
}
