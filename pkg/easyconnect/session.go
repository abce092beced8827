package easyconnect

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// session is the state of one onboarding attempt. A configurator holds one
// per enrollee; an enrollee holds one for itself.
type session struct {
	id     string
	peerID string

	// peer is the enrollee's bootstrapping data. On an enrollee it is the
	// node's own key including the private half.
	peer *bootstrap.Data

	mac    frame.MAC
	hasMAC bool

	// direct is set when the enrollee is reached over the air instead of
	// through a proxy agent.
	direct bool

	phase    Phase
	step     reconfigStep
	deadline time.Time
	created  time.Time

	initiator dppcrypto.Initiator
	responder dppcrypto.Responder
	key       *dppcrypto.SessionKey

	dialogToken uint8
	eNonce      []byte
	cNonce      []byte
	txID        uint8

	// config is the last-known-good configuration. It survives failed
	// reconfiguration attempts.
	config *ConfigObject

	// pending is the configuration sent during the current exchange.
	pending *ConfigObject

	// Connector material. On a controller peerNAK is the enrollee's access
	// key; on an enrollee ownNAK is its private access key and csign the
	// configurator's signing key.
	connector string
	peerNAK   *ecdh.PublicKey
	ownNAK    *ecdh.PrivateKey
	csign     *ecdsa.PublicKey
	pmk       []byte

	// lastRx is the digest of the last accepted frame and lastTx the
	// replies it produced, so retransmissions are answered identically.
	lastRx [sha256.Size]byte
	lastTx []outbound

	// nextChirp is when an enrollee announces itself again.
	nextChirp time.Time
}

func newSession(peer *bootstrap.Data, now time.Time) *session {
	return &session{
		id:      uuid.NewString(),
		peerID:  peer.PeerID(),
		peer:    peer,
		created: now,
	}
}

func (s *session) chirpHash() string {
	return hex.EncodeToString(s.peer.ChirpHash())
}

func (s *session) setMAC(mac frame.MAC) {
	if mac.IsZero() || mac.IsBroadcast() {
		return
	}
	s.mac, s.hasMAC = mac, true
}

// duplicate reports whether data repeats the last accepted frame.
func (s *session) duplicate(data []byte) bool {
	return len(s.lastTx) > 0 && sha256.Sum256(data) == s.lastRx
}

func (s *session) remember(data []byte, replies []outbound) {
	s.lastRx = sha256.Sum256(data)
	s.lastTx = replies
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:            s.id,
		PeerID:        s.peerID,
		MAC:           s.mac,
		HasMAC:        s.hasMAC,
		Phase:         s.phase,
		Reconfiguring: s.phase == PhaseReconfiguring,
		Direct:        s.direct,
		Deadline:      s.deadline,
		Created:       s.created,
		Config:        s.config,
	}
}

// SessionInfo is a read-only snapshot of a session.
type SessionInfo struct {
	ID            string
	PeerID        string
	MAC           frame.MAC
	HasMAC        bool
	Phase         Phase
	Reconfiguring bool
	Direct        bool
	Deadline      time.Time
	Created       time.Time
	Config        *ConfigObject
}

// sessionTable is the configurator's session arena. Entries are created
// and evicted explicitly; a peer never has two entries.
type sessionTable struct {
	byPeer  map[string]*session
	byMAC   map[frame.MAC]string
	byChirp map[string]string
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		byPeer:  make(map[string]*session),
		byMAC:   make(map[frame.MAC]string),
		byChirp: make(map[string]string),
	}
}

func (t *sessionTable) create(peer *bootstrap.Data, now time.Time) (*session, error) {
	id := peer.PeerID()
	if _, ok := t.byPeer[id]; ok {
		return nil, ErrSessionActive
	}
	s := newSession(peer, now)
	t.byPeer[id] = s
	t.byChirp[s.chirpHash()] = id
	if peer.HasMAC {
		t.bindMAC(s, peer.MAC)
	}
	return s, nil
}

func (t *sessionTable) bindMAC(s *session, mac frame.MAC) {
	if mac.IsZero() || mac.IsBroadcast() {
		return
	}
	if s.hasMAC && s.mac != mac {
		delete(t.byMAC, s.mac)
	}
	s.setMAC(mac)
	t.byMAC[mac] = s.peerID
}

func (t *sessionTable) evict(peerID string) bool {
	s, ok := t.byPeer[peerID]
	if !ok {
		return false
	}
	delete(t.byPeer, peerID)
	delete(t.byChirp, s.chirpHash())
	if s.hasMAC && t.byMAC[s.mac] == peerID {
		delete(t.byMAC, s.mac)
	}
	return true
}

func (t *sessionTable) get(peerID string) *session {
	return t.byPeer[peerID]
}

func (t *sessionTable) byMACAddr(mac frame.MAC) *session {
	if id, ok := t.byMAC[mac]; ok {
		return t.byPeer[id]
	}
	return nil
}

func (t *sessionTable) byChirpHash(hash []byte) *session {
	if id, ok := t.byChirp[hex.EncodeToString(hash)]; ok {
		return t.byPeer[id]
	}
	return nil
}

// byKeyHash finds a session from an R-bootstrap hash attribute.
func (t *sessionTable) byKeyHash(hash []byte) *session {
	return t.byPeer[hex.EncodeToString(hash)]
}

func (t *sessionTable) len() int {
	return len(t.byPeer)
}

// sorted returns sessions ordered by creation time.
func (t *sessionTable) sorted() []*session {
	out := make([]*session, 0, len(t.byPeer))
	for _, s := range t.byPeer {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].created.Equal(out[j].created) {
			return out[i].peerID < out[j].peerID
		}
		return out[i].created.Before(out[j].created)
	})
	return out
}
