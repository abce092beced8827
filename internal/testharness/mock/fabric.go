package mock

import (
	"fmt"
	"sync"

	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

type delivery struct {
	kind  MessageKind
	from  *Node
	to    *Node
	data  []byte
	chirp []byte
}

// Fabric connects simulated nodes. Frames are queued when sent and handed
// to the receiving engine by Pump, so every exchange runs step by step.
type Fabric struct {
	mu         sync.Mutex
	nodes      []*Node
	controller frame.MAC
	queue      []delivery
}

// NewFabric creates an empty network.
func NewFabric() *Fabric {
	return &Fabric{}
}

// Add registers a node with the fabric.
func (f *Fabric) Add(n *Node) *Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.fabric = f
	f.nodes = append(f.nodes, n)
	return n
}

// Attach creates the node's engine with cfg, bound to the node as transport.
func (f *Fabric) Attach(n *Node, cfg easyconnect.Config) (*easyconnect.Manager, error) {
	if n.fabric != f {
		f.Add(n)
	}
	m, err := easyconnect.New(cfg, easyconnect.NewTransport(n))
	if err != nil {
		return nil, err
	}
	n.Manager = m
	if cfg.Role == easyconnect.RoleController {
		f.mu.Lock()
		f.controller = n.ALMAC
		f.mu.Unlock()
	}
	return m, nil
}

// ControllerALMAC returns the AL address of the node running the controller.
func (f *Fabric) ControllerALMAC() frame.MAC {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.controller
}

// Link puts two nodes within radio range of each other.
func (f *Fabric) Link(a, b *Node) {
	a.mu.Lock()
	a.inRange[b.RadioMAC] = true
	a.mu.Unlock()
	b.mu.Lock()
	b.inRange[a.RadioMAC] = true
	b.mu.Unlock()
}

// Unlink takes two nodes out of radio range.
func (f *Fabric) Unlink(a, b *Node) {
	a.mu.Lock()
	delete(a.inRange, b.RadioMAC)
	a.mu.Unlock()
	b.mu.Lock()
	delete(b.inRange, a.RadioMAC)
	b.mu.Unlock()
}

// Node returns the node with the given AL or radio address.
func (f *Fabric) Node(mac frame.MAC) *Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.nodes {
		if n.ALMAC == mac || n.RadioMAC == mac {
			return n
		}
	}
	return nil
}

func (f *Fabric) enqueue(d delivery) {
	f.mu.Lock()
	f.queue = append(f.queue, d)
	f.mu.Unlock()
}

func (f *Fabric) others(from *Node) []*Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Node
	for _, n := range f.nodes {
		if n != from {
			out = append(out, n)
		}
	}
	return out
}

// radio delivers an action or GAS frame to nodes in range of from.
func (f *Fabric) radio(from *Node, dst frame.MAC, data []byte) error {
	matched := false
	for _, n := range f.others(from) {
		if !from.hears(n.RadioMAC) {
			continue
		}
		if dst.IsBroadcast() || n.RadioMAC == dst {
			f.enqueue(delivery{kind: KindAction, from: from, to: n, data: data})
			matched = true
		}
	}
	if !matched && !dst.IsBroadcast() {
		return fmt.Errorf("%w: %s", ErrOutOfRange, dst)
	}
	return nil
}

// backhaul delivers a 1905 TLV to dst, or to every other node when dst is
// a broadcast destination.
func (f *Fabric) backhaul(from *Node, dst easyconnect.Destination, d delivery) error {
	d.from = from
	if dst.Broadcast() {
		for _, n := range f.others(from) {
			d.to = n
			f.enqueue(d)
		}
		return nil
	}
	n := f.Node(dst.ALMAC)
	if n == nil || n == from {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, dst.ALMAC)
	}
	d.to = n
	f.enqueue(d)
	return nil
}

// Step delivers one queued frame. It reports false when the queue is empty.
func (f *Fabric) Step() bool {
	f.mu.Lock()
	if len(f.queue) == 0 {
		f.mu.Unlock()
		return false
	}
	d := f.queue[0]
	f.queue = f.queue[1:]
	f.mu.Unlock()

	m := d.to.Manager
	if m == nil {
		return true
	}

	var ok bool
	switch d.kind {
	case KindAction:
		if isGAS, err := frame.PeekCarrier(d.data); err == nil && isGAS {
			ok = m.HandleGASFrame(d.data, d.from.RadioMAC)
		} else {
			ok = m.HandleActionFrame(d.data, d.from.RadioMAC)
		}
	case KindEncap:
		ok = m.ProcessProxyEncapDPPMessage(d.data, d.chirp)
	case KindChirp:
		ok = m.ProcessChirpNotification(d.data)
	}
	if !ok {
		d.to.reject(Message{Kind: d.kind, To: d.to.ALMAC, Data: d.data, Chirp: d.chirp})
	}
	return true
}

// Pump delivers queued frames until the network is quiet or limit frames
// have been delivered. It returns the number delivered.
func (f *Fabric) Pump(limit int) int {
	n := 0
	for n < limit && f.Step() {
		n++
	}
	return n
}

// Pending returns the number of undelivered frames.
func (f *Fabric) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Drop discards every undelivered frame.
func (f *Fabric) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
}
