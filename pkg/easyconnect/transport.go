package easyconnect

import "github.com/meshonboard/ec-go/pkg/frame"

// Destination addresses a 1905 message on the backhaul.
type Destination struct {
	// ALMAC is the AL address of the target node. The zero value
	// addresses every agent.
	ALMAC frame.MAC
}

// Broadcast reports whether the destination addresses every agent.
func (d Destination) Broadcast() bool {
	return d.ALMAC.IsZero() || d.ALMAC.IsBroadcast()
}

// BackhaulInfo describes the node's backhaul station association.
type BackhaulInfo struct {
	Associated bool
	BSSID      frame.MAC
	StationMAC frame.MAC
}

// MeshInfo describes the node's place in the mesh.
type MeshInfo struct {
	ALMAC           frame.MAC
	ControllerALMAC frame.MAC
}

// Transport is the capability bundle the Manager emits traffic through.
// Every field is required. Queries and ToggleCCE are invoked with the
// Manager lock held and must not call back into the Manager; the Send
// functions are invoked after the lock is released.
type Transport struct {
	SendChirp            func(dst Destination, chirpTLV []byte) error
	SendEncapDPP         func(dst Destination, encapTLV, chirpTLV []byte) error
	SendActionFrame      func(dst frame.MAC, data []byte) error
	BackhaulInfo         func() BackhaulInfo
	MeshInfo             func() MeshInfo
	CanOnboardAdditional func() bool
	ToggleCCE            func(enable bool) bool
}

func (t Transport) valid() bool {
	return t.SendChirp != nil && t.SendEncapDPP != nil && t.SendActionFrame != nil &&
		t.BackhaulInfo != nil && t.MeshInfo != nil &&
		t.CanOnboardAdditional != nil && t.ToggleCCE != nil
}

// Sink is the interface form of Transport.
type Sink interface {
	SendChirp(dst Destination, chirpTLV []byte) error
	SendEncapDPP(dst Destination, encapTLV, chirpTLV []byte) error
	SendActionFrame(dst frame.MAC, data []byte) error
	BackhaulInfo() BackhaulInfo
	MeshInfo() MeshInfo
	CanOnboardAdditional() bool
	ToggleCCE(enable bool) bool
}

// NewTransport binds a Sink's methods into a Transport.
func NewTransport(s Sink) Transport {
	return Transport{
		SendChirp:            s.SendChirp,
		SendEncapDPP:         s.SendEncapDPP,
		SendActionFrame:      s.SendActionFrame,
		BackhaulInfo:         s.BackhaulInfo,
		MeshInfo:             s.MeshInfo,
		CanOnboardAdditional: s.CanOnboardAdditional,
		ToggleCCE:            s.ToggleCCE,
	}
}
