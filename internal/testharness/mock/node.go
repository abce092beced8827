// Package mock provides a simulated EasyMesh network for exercising
// onboarding engines together: a radio medium between nearby nodes and a
// 1905 backhaul between all of them.
package mock

import (
	"sync"

	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// Node is a simulated mesh node. It implements easyconnect.Sink and
// records everything its Manager emits.
type Node struct {
	// Name labels the node in test output.
	Name string

	// ALMAC is the node's 1905 AL address.
	ALMAC frame.MAC

	// RadioMAC is the address the node transmits action frames from.
	RadioMAC frame.MAC

	// Manager is the node's onboarding engine, set by Fabric.Attach.
	Manager *easyconnect.Manager

	// Capacity is how many more devices the node may onboard. Negative
	// means unlimited.
	Capacity int

	// CCEFails makes enabling the CCE fail.
	CCEFails bool

	// LinkDown makes backhaul sends fail.
	LinkDown bool

	fabric *Fabric

	mu         sync.RWMutex
	backhaul   easyconnect.BackhaulInfo
	cce        bool
	cceToggles []bool
	sent       []Message
	rejected   []Message
	inRange    map[frame.MAC]bool
}

// MessageKind classifies recorded traffic.
type MessageKind string

const (
	KindAction MessageKind = "action"
	KindEncap  MessageKind = "encap"
	KindChirp  MessageKind = "chirp"
)

// Message is a frame a node sent or failed to process.
type Message struct {
	Kind MessageKind

	// To is the radio destination (action) or AL destination (encap, chirp).
	To frame.MAC

	Data  []byte
	Chirp []byte
}

// NewNode creates a node with unlimited onboarding capacity.
func NewNode(name string, alMAC, radioMAC frame.MAC) *Node {
	return &Node{
		Name:     name,
		ALMAC:    alMAC,
		RadioMAC: radioMAC,
		Capacity: -1,
		inRange:  make(map[frame.MAC]bool),
	}
}

// Associate sets the node's backhaul station association.
func (n *Node) Associate(bssid frame.MAC) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.backhaul = easyconnect.BackhaulInfo{Associated: true, BSSID: bssid, StationMAC: n.RadioMAC}
}

// CCE reports whether the node currently advertises the CCE.
func (n *Node) CCE() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cce
}

// CCEToggles returns every CCE toggle the engine requested, in order.
func (n *Node) CCEToggles() []bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]bool(nil), n.cceToggles...)
}

// Sent returns all frames the node emitted.
func (n *Node) Sent() []Message {
	n.mu.RLock()
	defer n.mu.RUnlock()
	result := make([]Message, len(n.sent))
	copy(result, n.sent)
	return result
}

// SentOfKind returns emitted frames of one kind.
func (n *Node) SentOfKind(kind MessageKind) []Message {
	var out []Message
	for _, m := range n.Sent() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Rejected returns frames delivered to the node that its engine refused.
func (n *Node) Rejected() []Message {
	n.mu.RLock()
	defer n.mu.RUnlock()
	result := make([]Message, len(n.rejected))
	copy(result, n.rejected)
	return result
}

// ClearSent forgets recorded traffic.
func (n *Node) ClearSent() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = n.sent[:0]
	n.rejected = n.rejected[:0]
}

func (n *Node) record(m Message) {
	n.mu.Lock()
	n.sent = append(n.sent, m)
	n.mu.Unlock()
}

func (n *Node) reject(m Message) {
	n.mu.Lock()
	n.rejected = append(n.rejected, m)
	n.mu.Unlock()
}

func (n *Node) hears(mac frame.MAC) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.inRange[mac]
}

// SendChirp implements easyconnect.Sink.
func (n *Node) SendChirp(dst easyconnect.Destination, chirpTLV []byte) error {
	if n.LinkDown {
		return ErrLinkDown
	}
	n.record(Message{Kind: KindChirp, To: dst.ALMAC, Data: chirpTLV})
	return n.fabric.backhaul(n, dst, delivery{kind: KindChirp, data: chirpTLV})
}

// SendEncapDPP implements easyconnect.Sink.
func (n *Node) SendEncapDPP(dst easyconnect.Destination, encapTLV, chirpTLV []byte) error {
	if n.LinkDown {
		return ErrLinkDown
	}
	n.record(Message{Kind: KindEncap, To: dst.ALMAC, Data: encapTLV, Chirp: chirpTLV})
	return n.fabric.backhaul(n, dst, delivery{kind: KindEncap, data: encapTLV, chirp: chirpTLV})
}

// SendActionFrame implements easyconnect.Sink.
func (n *Node) SendActionFrame(dst frame.MAC, data []byte) error {
	n.record(Message{Kind: KindAction, To: dst, Data: data})
	return n.fabric.radio(n, dst, data)
}

// BackhaulInfo implements easyconnect.Sink.
func (n *Node) BackhaulInfo() easyconnect.BackhaulInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.backhaul
}

// MeshInfo implements easyconnect.Sink.
func (n *Node) MeshInfo() easyconnect.MeshInfo {
	return easyconnect.MeshInfo{ALMAC: n.ALMAC, ControllerALMAC: n.fabric.ControllerALMAC()}
}

// CanOnboardAdditional implements easyconnect.Sink.
func (n *Node) CanOnboardAdditional() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Capacity < 0 {
		return true
	}
	return n.Capacity > 0
}

// ToggleCCE implements easyconnect.Sink.
func (n *Node) ToggleCCE(enable bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cceToggles = append(n.cceToggles, enable)
	if n.CCEFails && enable {
		return false
	}
	n.cce = enable
	return true
}

var _ easyconnect.Sink = (*Node)(nil)
