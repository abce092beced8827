package easyconnect

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
)

// maxQueuedRelays bounds the frames held for an enrollee whose address is
// not yet known.
const maxQueuedRelays = 4

// proxyState is the proxy agent configurator. It relays DPP frames between
// enrollees in radio range and the controller.
type proxyState struct {
	cce    bool
	relays map[string]*relayEntry

	// onboarded is the configuration the agent itself was onboarded with.
	onboarded *ConfigObject
}

// relayEntry tracks one enrollee the controller wants to reach.
type relayEntry struct {
	hash    []byte
	mac     frame.MAC
	hasMAC  bool
	queued  []*frame.EncapDPP
	expires time.Time
}

func newProxyState(self *session) *proxyState {
	p := &proxyState{relays: make(map[string]*relayEntry)}
	if self != nil {
		p.onboarded = self.config
	}
	return p
}

func (p *proxyState) relay(hash []byte, expires time.Time) *relayEntry {
	key := hex.EncodeToString(hash)
	r, ok := p.relays[key]
	if !ok {
		r = &relayEntry{hash: append([]byte(nil), hash...)}
		p.relays[key] = r
	}
	r.expires = expires
	return r
}

func (r *relayEntry) setMAC(mac frame.MAC) {
	if mac.IsZero() || mac.IsBroadcast() {
		return
	}
	r.mac, r.hasMAC = mac, true
}

func (m *Manager) controllerDestination() Destination {
	return Destination{ALMAC: m.transport.MeshInfo().ControllerALMAC}
}

// proxyFromEnrollee forwards an over-the-air frame to the controller. A
// presence announcement becomes a chirp notification and releases frames
// the controller queued for that enrollee.
func (m *Manager) proxyFromEnrollee(p *proxyState, data []byte, f *frame.ActionFrame, src frame.MAC) error {
	if f.Type != frame.TypePresenceAnnouncement {
		m.encapOut(m.controllerDestination(), &frame.EncapDPP{
			EnrolleeMAC:    src,
			HasEnrolleeMAC: !src.IsZero(),
			FrameType:      f.Type,
			Frame:          data,
		}, nil, "")
		return nil
	}

	hash, err := attr(f.Attributes, frame.AttrResponderBootstrapHash)
	if err != nil {
		return err
	}
	r := p.relay(hash, m.now().Add(m.config.RelayTTL))
	r.setMAC(src)
	m.releaseQueued(r)

	m.chirpOut(m.controllerDestination(), &frame.ChirpValue{
		EnrolleeMAC:    src,
		HasEnrolleeMAC: !src.IsZero(),
		HashValid:      true,
		Hash:           hash,
	})
	return nil
}

func (m *Manager) proxyGASFromEnrollee(_ *proxyState, data []byte, src frame.MAC) error {
	m.encapOut(m.controllerDestination(), &frame.EncapDPP{
		EnrolleeMAC:    src,
		HasEnrolleeMAC: !src.IsZero(),
		IsGAS:          true,
		FrameType:      frame.TypeGAS,
		Frame:          data,
	}, nil, "")
	return nil
}

// proxyFromController transmits a controller frame to its enrollee. Frames
// carrying a chirp are held until the enrollee's address is known.
func (m *Manager) proxyFromController(p *proxyState, e *frame.EncapDPP, c *frame.ChirpValue) error {
	if c == nil {
		if !e.HasEnrolleeMAC {
			return fmt.Errorf("%w: encapsulated %s without enrollee address", ErrUnknownPeer, e.FrameType)
		}
		m.actionOut(e.EnrolleeMAC, e.FrameType, e.Frame, "")
		return nil
	}

	r := p.relay(c.Hash, m.now().Add(m.config.RelayTTL))
	if c.HasEnrolleeMAC {
		r.setMAC(c.EnrolleeMAC)
	}
	if e.HasEnrolleeMAC {
		r.setMAC(e.EnrolleeMAC)
	}
	if !r.hasMAC {
		r.queued = append(r.queued, e)
		if len(r.queued) > maxQueuedRelays {
			r.queued = r.queued[len(r.queued)-maxQueuedRelays:]
		}
		m.debugLog("holding relay until enrollee chirps", "hash", hex.EncodeToString(c.Hash), "queued", len(r.queued))
		return nil
	}
	m.actionOut(r.mac, e.FrameType, e.Frame, "")
	return nil
}

func (m *Manager) releaseQueued(r *relayEntry) {
	if !r.hasMAC {
		return
	}
	for _, e := range r.queued {
		m.actionOut(r.mac, e.FrameType, e.Frame, "")
	}
	r.queued = nil
}

// proxyChirp records or withdraws an enrollee the controller is looking for.
func (m *Manager) proxyChirp(p *proxyState, c *frame.ChirpValue) error {
	if !c.HashValid {
		delete(p.relays, hex.EncodeToString(c.Hash))
		return nil
	}
	r := p.relay(c.Hash, m.now().Add(m.config.RelayTTL))
	if c.HasEnrolleeMAC {
		r.setMAC(c.EnrolleeMAC)
		m.releaseQueued(r)
	}
	return nil
}

func (m *Manager) proxyTick(p *proxyState, now time.Time) {
	for key, r := range p.relays {
		if now.After(r.expires) {
			m.debugLog("relay expired", "hash", key, "queued", len(r.queued))
			delete(p.relays, key)
		}
	}
}

// RelayCount returns the number of enrollees a proxy agent is relaying for.
func (m *Manager) RelayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.configurator; c != nil && c.kind == KindProxyAgent {
		return len(c.proxy.relays)
	}
	return 0
}
