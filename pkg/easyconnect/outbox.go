package easyconnect

import (
	"github.com/meshonboard/ec-go/pkg/frame"
	"github.com/meshonboard/ec-go/pkg/log"
)

type outKind uint8

const (
	outAction outKind = iota
	outEncap
	outChirp
)

// outbound is a frame queued inside the critical section and handed to the
// transport after the lock is released.
type outbound struct {
	kind  outKind
	dst   Destination
	mac   frame.MAC
	data  []byte
	chirp []byte
}

// queue appends frames to the outbox.
func (m *Manager) queue(out ...outbound) {
	m.outbox = append(m.outbox, out...)
}

// flush hands queued frames to the transport. Send failures are logged;
// sink calls are one-way notifications.
func (m *Manager) flush(out []outbound) {
	for _, o := range out {
		var err error
		switch o.kind {
		case outAction:
			err = m.transport.SendActionFrame(o.mac, o.data)
		case outEncap:
			err = m.transport.SendEncapDPP(o.dst, o.data, o.chirp)
		case outChirp:
			err = m.transport.SendChirp(o.dst, o.data)
		}
		if err != nil {
			m.debugLog("transport send failed", "kind", o.kind, "error", err)
			m.logError(log.CarrierNone, "flush", err, o.mac)
		}
	}
}

// actionOut queues a DPP action frame or GAS frame for direct transmission.
func (m *Manager) actionOut(dst frame.MAC, t frame.Type, data []byte, sessionID string) outbound {
	carrier := log.CarrierAction
	if t == frame.TypeGAS {
		carrier = log.CarrierGAS
	}
	m.logFrame(log.DirectionOut, carrier, t, data, sessionID, dst)
	o := outbound{kind: outAction, mac: dst, data: data}
	m.queue(o)
	return o
}

// encapOut queues an Encap DPP TLV, with an optional Chirp Value TLV.
func (m *Manager) encapOut(dst Destination, e *frame.EncapDPP, chirp *frame.ChirpValue, sessionID string) outbound {
	o := outbound{kind: outEncap, dst: dst, data: e.Encode(), mac: e.EnrolleeMAC}
	if chirp != nil {
		o.chirp = chirp.Encode()
	}
	m.logFrame(log.DirectionOut, log.CarrierEncap, e.FrameType, e.Frame, sessionID, e.EnrolleeMAC)
	m.queue(o)
	return o
}

// chirpOut queues a Chirp Value TLV.
func (m *Manager) chirpOut(dst Destination, c *frame.ChirpValue) outbound {
	o := outbound{kind: outChirp, dst: dst, data: c.Encode(), mac: c.EnrolleeMAC}
	m.logFrame(log.DirectionOut, log.CarrierChirp, frame.TypePresenceAnnouncement, o.data, "", c.EnrolleeMAC)
	m.queue(o)
	return o
}
