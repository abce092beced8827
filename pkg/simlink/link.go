package simlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// ErrClosed is returned by operations on a closed link.
var ErrClosed = errors.New("link closed")

// Receiver consumes inbound traffic. *easyconnect.Manager implements it.
type Receiver interface {
	HandleActionFrame(data []byte, src frame.MAC) bool
	HandleGASFrame(data []byte, src frame.MAC) bool
	ProcessChirpNotification(tlv []byte) bool
	ProcessProxyEncapDPPMessage(encap, chirp []byte) bool
}

// Config configures a Link.
type Config struct {
	// Listen is the local UDP address, e.g. "127.0.0.1:9908".
	Listen string

	// Peers are the UDP addresses every envelope is sent to.
	Peers []string

	// MAC is the radio address; ALMAC the 1905 AL address.
	MAC   frame.MAC
	ALMAC frame.MAC

	// ControllerALMAC is the initially known controller. It can be
	// learned later with SetControllerALMAC.
	ControllerALMAC frame.MAC

	// CanOnboardAdditional answers the controller's admission query.
	// Nil admits everyone.
	CanOnboardAdditional func() bool

	Logger *slog.Logger
}

// Link is a UDP-backed easyconnect.Sink.
type Link struct {
	config Config
	conn   *net.UDPConn
	peers  []*net.UDPAddr
	logger *slog.Logger

	mu           sync.RWMutex
	controllerAL frame.MAC
	backhaul     easyconnect.BackhaulInfo
	cce          bool
	cceSeen      map[frame.MAC]bool
	closed       bool
}

var _ easyconnect.Sink = (*Link)(nil)

// Listen opens the UDP socket and resolves the peers.
func Listen(cfg Config) (*Link, error) {
	laddr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}
	peers := make([]*net.UDPAddr, 0, len(cfg.Peers))
	for _, p := range cfg.Peers {
		addr, err := net.ResolveUDPAddr("udp", p)
		if err != nil {
			return nil, fmt.Errorf("resolve peer %s: %w", p, err)
		}
		peers = append(peers, addr)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Link{
		config:       cfg,
		conn:         conn,
		peers:        peers,
		logger:       cfg.Logger,
		controllerAL: cfg.ControllerALMAC,
		cceSeen:      make(map[frame.MAC]bool),
	}, nil
}

// Addr returns the local UDP address.
func (l *Link) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// AddPeer adds a UDP destination.
func (l *Link) AddPeer(addr string) error {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.peers = append(l.peers, a)
	l.mu.Unlock()
	return nil
}

// SetControllerALMAC records the controller learned through discovery.
func (l *Link) SetControllerALMAC(al frame.MAC) {
	l.mu.Lock()
	l.controllerAL = al
	l.mu.Unlock()
}

// SetBackhaul records the node's backhaul association.
func (l *Link) SetBackhaul(info easyconnect.BackhaulInfo) {
	l.mu.Lock()
	l.backhaul = info
	l.mu.Unlock()
}

// CCEAdvertisers returns the radio MACs currently beaconing the CCE IE.
func (l *Link) CCEAdvertisers() []frame.MAC {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]frame.MAC, 0, len(l.cceSeen))
	for mac := range l.cceSeen {
		out = append(out, mac)
	}
	return out
}

// Close stops the link. A blocked Serve returns.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.conn.Close()
}

// SendChirp implements easyconnect.Sink.
func (l *Link) SendChirp(dst easyconnect.Destination, chirpTLV []byte) error {
	return l.send(&Envelope{Kind: KindChirp, Src: l.config.ALMAC, Dst: dst.ALMAC, Payload: chirpTLV})
}

// SendEncapDPP implements easyconnect.Sink.
func (l *Link) SendEncapDPP(dst easyconnect.Destination, encapTLV, chirpTLV []byte) error {
	return l.send(&Envelope{Kind: KindEncap, Src: l.config.ALMAC, Dst: dst.ALMAC, Payload: encapTLV, Chirp: chirpTLV})
}

// SendActionFrame implements easyconnect.Sink. GAS and public action
// frames share the radio; the carrier is recorded in the envelope.
func (l *Link) SendActionFrame(dst frame.MAC, data []byte) error {
	isGAS, err := frame.PeekCarrier(data)
	if err != nil {
		return err
	}
	kind := KindAction
	if isGAS {
		kind = KindGAS
	}
	return l.send(&Envelope{Kind: kind, Src: l.config.MAC, Dst: dst, Payload: data})
}

// BackhaulInfo implements easyconnect.Sink.
func (l *Link) BackhaulInfo() easyconnect.BackhaulInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backhaul
}

// MeshInfo implements easyconnect.Sink.
func (l *Link) MeshInfo() easyconnect.MeshInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return easyconnect.MeshInfo{ALMAC: l.config.ALMAC, ControllerALMAC: l.controllerAL}
}

// CanOnboardAdditional implements easyconnect.Sink.
func (l *Link) CanOnboardAdditional() bool {
	if l.config.CanOnboardAdditional == nil {
		return true
	}
	return l.config.CanOnboardAdditional()
}

// ToggleCCE implements easyconnect.Sink. The new state is beaconed to the
// peers; a failed beacon reports false and leaves the state unchanged.
func (l *Link) ToggleCCE(enable bool) bool {
	if err := l.send(&Envelope{Kind: KindBeacon, Src: l.config.MAC, CCE: enable}); err != nil {
		l.debugLog("CCE beacon failed", "error", err)
		return false
	}
	l.mu.Lock()
	l.cce = enable
	l.mu.Unlock()
	return true
}

// CCE reports whether this link currently beacons the CCE IE.
func (l *Link) CCE() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cce
}

func (l *Link) send(e *Envelope) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	l.mu.RLock()
	closed := l.closed
	peers := l.peers
	l.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	var errs []error
	for _, p := range peers {
		if _, err := l.conn.WriteToUDP(data, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Serve reads datagrams and dispatches them to r until ctx is cancelled
// or the link is closed. Malformed datagrams are logged and dropped.
func (l *Link) Serve(ctx context.Context, r Receiver) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrClosed
			}
			return err
		}
		e, err := DecodeEnvelope(buf[:n])
		if err != nil {
			l.debugLog("dropping datagram", "from", from, "error", err)
			continue
		}
		l.dispatch(e, r)
	}
}

func (l *Link) dispatch(e *Envelope, r Receiver) {
	if !e.addressedTo(l.config.MAC, l.config.ALMAC) {
		return
	}
	var handled bool
	switch e.Kind {
	case KindAction:
		handled = r.HandleActionFrame(e.Payload, e.Src)
	case KindGAS:
		handled = r.HandleGASFrame(e.Payload, e.Src)
	case KindChirp:
		handled = r.ProcessChirpNotification(e.Payload)
	case KindEncap:
		handled = r.ProcessProxyEncapDPPMessage(e.Payload, e.Chirp)
	case KindBeacon:
		l.mu.Lock()
		if e.CCE {
			l.cceSeen[e.Src] = true
		} else {
			delete(l.cceSeen, e.Src)
		}
		l.mu.Unlock()
		handled = true
	}
	l.debugLog("received", "kind", e.Kind, "src", e.Src, "handled", handled)
}

func (l *Link) debugLog(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug("simlink: "+msg, args...)
	}
}
