package easyconnect

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// controllerState is the controller configurator: the signing identity,
// the configuration source and one session per enrollee.
type controllerState struct {
	identity *dppcrypto.Configurator
	source   ConfigSource
	sessions *sessionTable

	// bootstraps holds known enrollee keys by chirp hash.
	bootstraps map[string]*bootstrap.Data
}

func newControllerState(identity *dppcrypto.Configurator, source ConfigSource) *controllerState {
	return &controllerState{
		identity:   identity,
		source:     source,
		sessions:   newSessionTable(),
		bootstraps: make(map[string]*bootstrap.Data),
	}
}

func (c *controllerState) addBootstrap(b *bootstrap.Data) {
	c.bootstraps[hex.EncodeToString(b.ChirpHash())] = b.Public()
}

func (c *controllerState) lookupBootstrap(hash []byte) *bootstrap.Data {
	return c.bootstraps[hex.EncodeToString(hash)]
}

// find locates the session a frame belongs to: by R-bootstrap hash when the
// frame carries one, otherwise by the enrollee address.
func (c *controllerState) find(attrs frame.Attributes, src frame.MAC) *session {
	if h, ok := attrs.Get(frame.AttrResponderBootstrapHash); ok {
		return c.sessions.byKeyHash(h)
	}
	return c.sessions.byMACAddr(src)
}

// byNetAccessKey finds the configured session whose Connector carries nak.
func (c *controllerState) byNetAccessKey(claims *dppcrypto.ConnectorClaims) *session {
	nak, err := claims.NetAccessKey.ECDH()
	if err != nil {
		return nil
	}
	for _, s := range c.sessions.sorted() {
		if sameKey(s.peerNAK, nak) {
			return s
		}
	}
	return nil
}

func (m *Manager) controllerStart(c *controllerState, b *bootstrap.Data) error {
	if b == nil || b.PublicKey == nil {
		return ErrBadBootstrap
	}
	if c.sessions.get(b.PeerID()) != nil {
		return ErrSessionActive
	}
	if !m.transport.CanOnboardAdditional() {
		return ErrAdmissionDenied
	}

	s, err := c.sessions.create(b.Public(), m.now())
	if err != nil {
		return err
	}
	c.addBootstrap(b)
	m.setPhase(s, PhaseBootstrapped, "bootstrapping data registered")

	if !b.HasMAC {
		return nil
	}
	s.direct = true
	if err := m.controllerAuth(c, s); err != nil {
		m.evict(c, s, err.Error())
		return err
	}
	return nil
}

// controllerChirp reacts to an enrollee announcing its chirp hash, over the
// air (direct) or through a proxy agent.
func (m *Manager) controllerChirp(c *controllerState, hash []byte, mac frame.MAC, direct bool) error {
	if s := c.sessions.byChirpHash(hash); s != nil {
		switch {
		case s.phase == PhaseBootstrapped && s.initiator == nil:
			c.sessions.bindMAC(s, mac)
			s.direct = direct
			if err := m.controllerAuth(c, s); err != nil {
				m.evict(c, s, err.Error())
				return err
			}
			return nil
		case s.phase.handshaking():
			// The enrollee keeps chirping until our request reaches it.
			m.queue(s.lastTx...)
			return nil
		default:
			return fmt.Errorf("%w: %s in %s", ErrSessionActive, short(s.peerID), s.phase)
		}
	}

	b := c.lookupBootstrap(hash)
	if b == nil {
		return fmt.Errorf("%w: chirp %x", ErrUnknownPeer, hash)
	}
	if !m.transport.CanOnboardAdditional() {
		return ErrAdmissionDenied
	}
	s, err := c.sessions.create(b, m.now())
	if err != nil {
		return err
	}
	c.sessions.bindMAC(s, mac)
	s.direct = direct
	m.setPhase(s, PhaseBootstrapped, "chirp received")

	if err := m.controllerAuth(c, s); err != nil {
		m.evict(c, s, err.Error())
		return err
	}
	return nil
}

// controllerAuth sends the Authentication Request for s. Admission was
// checked when s was created.
func (m *Manager) controllerAuth(c *controllerState, s *session) error {
	ini, err := m.suite.Initiate(s.peer)
	if err != nil {
		return err
	}
	attrs, err := ini.Request()
	if err != nil {
		return err
	}
	s.initiator = ini

	data := frame.NewActionFrame(frame.TypeAuthRequest, attrs).Encode()
	s.lastTx = []outbound{m.toEnrollee(s, frame.TypeAuthRequest, data, true)}
	m.setPhase(s, PhaseAuthenticating, "auth request sent")
	return nil
}

// toEnrollee queues a frame for the session's enrollee: over the air when it
// is in range, otherwise encapsulated to the proxy agents.
func (m *Manager) toEnrollee(s *session, t frame.Type, data []byte, withChirp bool) outbound {
	if s.direct {
		dst := frame.BroadcastMAC
		if s.hasMAC {
			dst = s.mac
		}
		return m.actionOut(dst, t, data, s.id)
	}

	e := &frame.EncapDPP{
		EnrolleeMAC:    s.mac,
		HasEnrolleeMAC: s.hasMAC,
		IsGAS:          t == frame.TypeGAS,
		FrameType:      t,
		Frame:          data,
	}
	var chirp *frame.ChirpValue
	if withChirp {
		chirp = &frame.ChirpValue{
			EnrolleeMAC:    s.mac,
			HasEnrolleeMAC: s.hasMAC,
			HashValid:      true,
			Hash:           s.peer.ChirpHash(),
		}
	}
	return m.encapOut(Destination{}, e, chirp, s.id)
}

// controllerEncap handles a frame an enrollee sent through a proxy agent.
func (m *Manager) controllerEncap(c *controllerState, e *frame.EncapDPP) error {
	if e.IsGAS {
		g, err := frame.ParseGASFrame(e.Frame)
		if err != nil {
			return err
		}
		if g.Action != frame.GASInitialRequest {
			return fmt.Errorf("%w: %s", ErrUnexpectedFrame, g.Action)
		}
		return m.controllerGAS(c, e.Frame, g, e.EnrolleeMAC, false)
	}

	f, err := frame.ParseActionFrame(e.Frame)
	if err != nil {
		return err
	}
	if !configuratorAccepts(f.Type) {
		return fmt.Errorf("%w: %s", ErrUnexpectedFrame, f.Type)
	}
	return m.controllerAction(c, e.Frame, f, e.EnrolleeMAC, false)
}

func (m *Manager) controllerAction(c *controllerState, data []byte, f *frame.ActionFrame, src frame.MAC, direct bool) error {
	switch f.Type {
	case frame.TypePresenceAnnouncement:
		hash, err := attr(f.Attributes, frame.AttrResponderBootstrapHash)
		if err != nil {
			return err
		}
		return m.controllerChirp(c, hash, src, direct)
	case frame.TypePeerDiscoveryRequest:
		return m.controllerIntroduce(c, f, src, direct)
	}

	if f.Type == frame.TypeReconfigAnnouncement {
		if err := m.checkCSignHash(c, f.Attributes); err != nil {
			return err
		}
	}
	s := c.find(f.Attributes, src)
	if s == nil && f.Type == frame.TypeReconfigAuthResponse {
		s = c.byConnector(f.Attributes)
	}
	if s == nil {
		return fmt.Errorf("%w: %s from %s", ErrUnknownPeer, f.Type, src)
	}
	if s.duplicate(data) {
		m.debugLog("retransmitting reply to duplicate", "peer", short(s.peerID), "type", f.Type)
		m.queue(s.lastTx...)
		return nil
	}

	switch f.Type {
	case frame.TypeAuthResponse:
		return m.controllerAuthResponse(c, s, data, f, src, direct)
	case frame.TypeConfigResult:
		return m.controllerConfigResult(c, s, data, f)
	case frame.TypeConnStatusResult:
		return m.controllerConnStatus(s, data, f)
	case frame.TypeReconfigAnnouncement:
		return m.controllerReconfigAnnounce(c, s, data)
	case frame.TypeReconfigAuthResponse:
		return m.controllerReconfigAuth(c, s, data, f)
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedFrame, f.Type)
}

func phaseMismatch(s *session, t fmt.Stringer) error {
	return fmt.Errorf("%w: %s in %s", ErrPhaseMismatch, t, s.phase)
}

func (m *Manager) controllerAuthResponse(c *controllerState, s *session, data []byte, f *frame.ActionFrame, src frame.MAC, direct bool) error {
	if s.phase != PhaseAuthenticating || s.initiator == nil {
		return phaseMismatch(s, f.Type)
	}

	confirm, key, err := s.initiator.Confirm(f.Attributes)
	if err != nil {
		m.evict(c, s, "authentication failed: "+err.Error())
		return err
	}
	s.initiator = nil
	s.key = key
	if direct || !s.hasMAC {
		c.sessions.bindMAC(s, src)
	}

	out := m.toEnrollee(s, frame.TypeAuthConfirm, frame.NewActionFrame(frame.TypeAuthConfirm, confirm).Encode(), false)
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseAuthenticated, "authenticated")
	return nil
}

// controllerGAS answers a DPP Configuration Request.
func (m *Manager) controllerGAS(c *controllerState, data []byte, g *frame.GASFrame, src frame.MAC, direct bool) error {
	attrs, err := g.Attributes()
	if err != nil {
		return err
	}
	s := c.find(attrs, src)
	if s == nil {
		return fmt.Errorf("%w: config request from %s", ErrUnknownPeer, src)
	}
	if s.duplicate(data) {
		m.queue(s.lastTx...)
		return nil
	}

	reconfig := s.phase == PhaseReconfiguring
	if !(s.phase == PhaseAuthenticated || reconfig && s.step == stepConfig && s.pending == nil) {
		return phaseMismatch(s, frame.GASInitialRequest)
	}

	inner, err := openWrapped(s.key, adConfigRequest, attrs)
	if err != nil {
		return err
	}
	eNonce, err := attr(inner, frame.AttrEnrolleeNonce)
	if err != nil {
		return err
	}
	body, err := attr(inner, frame.AttrConfigRequestObject)
	if err != nil {
		return err
	}

	obj, err := m.buildConfig(c, s, body)
	if err != nil {
		fail := frame.NewConfigResponse(g.DialogToken, frame.Attributes{}.AddStatus(frame.StatusConfigurationFailure))
		m.toEnrollee(s, frame.TypeGAS, fail.Encode(), false)
		m.fail(c, s, "configuration failed: "+err.Error())
		return err
	}

	payload, err := marshalObject(obj)
	if err != nil {
		return err
	}
	wrapped, err := s.key.Seal(adConfigResponse, frame.Attributes{}.
		Add(frame.AttrEnrolleeNonce, eNonce).
		Add(frame.AttrConfigurationObject, payload))
	if err != nil {
		return err
	}

	resp := frame.NewConfigResponse(g.DialogToken, frame.Attributes{}.
		AddStatus(frame.StatusOK).
		Add(frame.AttrWrappedData, wrapped))
	out := m.toEnrollee(s, frame.TypeGAS, resp.Encode(), false)

	s.pending = obj
	s.eNonce = eNonce
	s.dialogToken = g.DialogToken
	s.remember(data, []outbound{out})
	if reconfig {
		m.setPhase(s, PhaseReconfiguring, "config response sent")
	} else {
		m.setPhase(s, PhaseConfiguring, "config response sent")
	}
	return nil
}

// buildConfig asks the source for a configuration and signs a Connector
// for the enrollee's access key.
func (m *Manager) buildConfig(c *controllerState, s *session, body []byte) (*ConfigObject, error) {
	req, err := unmarshalConfigRequest(body)
	if err != nil {
		return nil, err
	}
	nak, err := req.NetAccessKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: net access key: %v", ErrConfigRejected, err)
	}

	peer := PeerInfo{PeerID: s.peerID, Reconfiguring: s.phase == PhaseReconfiguring}
	if s.hasMAC {
		peer.MAC = s.mac.String()
	}
	obj, err := c.source.ConfigFor(peer, req)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: no configuration for %s", ErrConfigRejected, short(s.peerID))
	}

	role := req.NetRole
	if role == "" {
		role = dppcrypto.NetRoleMAPAgent
	}
	connector, err := c.identity.Issue(role, nak)
	if err != nil {
		return nil, err
	}

	out := *obj
	csign := c.identity.CSignJWK()
	out.Cred.SignedConnector = connector
	out.Cred.CSign = &csign
	s.peerNAK = nak
	s.connector = connector
	return &out, nil
}

func (m *Manager) controllerConfigResult(c *controllerState, s *session, data []byte, f *frame.ActionFrame) error {
	if s.pending == nil || (s.phase != PhaseConfiguring && s.phase != PhaseReconfiguring) {
		return phaseMismatch(s, f.Type)
	}
	inner, err := openWrapped(s.key, adFor(frame.TypeConfigResult), f.Attributes)
	if err != nil {
		return err
	}
	if err := checkNonce(inner, frame.AttrEnrolleeNonce, s.eNonce); err != nil {
		return err
	}
	status, ok := inner.Status()
	if !ok {
		return fmt.Errorf("%w: %s", dppcrypto.ErrMissingAttribute, frame.AttrStatus)
	}

	s.remember(data, nil)
	if status != frame.StatusOK {
		s.pending = nil
		m.fail(c, s, "enrollee rejected configuration: "+status.String())
		return nil
	}
	s.config = s.pending
	s.pending = nil
	s.step = stepAnnounce
	m.setPhase(s, PhaseConfigured, reasonConfigured)
	return nil
}

func (m *Manager) controllerConnStatus(s *session, data []byte, f *frame.ActionFrame) error {
	if s.phase != PhaseConfigured {
		return phaseMismatch(s, f.Type)
	}
	inner, err := openWrapped(s.key, adFor(frame.TypeConnStatusResult), f.Attributes)
	if err != nil {
		return err
	}
	status, _ := inner.Status()
	s.remember(data, nil)
	m.debugLog("connection status", "peer", short(s.peerID), "status", status)
	return nil
}

func (m *Manager) checkCSignHash(c *controllerState, attrs frame.Attributes) error {
	h, err := attr(attrs, frame.AttrCSignKeyHash)
	if err != nil {
		return err
	}
	if !bytes.Equal(h, c.identity.CSignKeyHash()) {
		return fmt.Errorf("%w: C-sign key hash", dppcrypto.ErrNotForUs)
	}
	return nil
}

// byConnector finds the session a reconfiguration frame belongs to by the
// access key in its Connector.
func (c *controllerState) byConnector(attrs frame.Attributes) *session {
	v, ok := attrs.Get(frame.AttrConnector)
	if !ok {
		return nil
	}
	claims, err := dppcrypto.VerifyConnector(string(v), &c.identity.CSign.PublicKey)
	if err != nil {
		return nil
	}
	return c.byNetAccessKey(claims)
}

func (m *Manager) controllerReconfigAnnounce(c *controllerState, s *session, data []byte) error {
	if s.phase != PhaseConfigured {
		return phaseMismatch(s, frame.TypeReconfigAnnouncement)
	}
	cNonce, err := dppcrypto.NewNonce()
	if err != nil {
		return err
	}
	txID := s.txID + 1

	attrs := frame.Attributes{}.
		Add(frame.AttrTransactionID, []byte{txID}).
		Add(frame.AttrProtocolVersion, []byte{protocolVersion}).
		Add(frame.AttrConnector, []byte(c.identity.Connector)).
		Add(frame.AttrConfiguratorNonce, cNonce)
	out := m.toEnrollee(s, frame.TypeReconfigAuthRequest,
		frame.NewActionFrame(frame.TypeReconfigAuthRequest, attrs).Encode(), false)

	s.txID = txID
	s.cNonce = cNonce
	s.step = stepAuth
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseReconfiguring, "reconfiguration announced")
	return nil
}

func (m *Manager) controllerReconfigAuth(c *controllerState, s *session, data []byte, f *frame.ActionFrame) error {
	if s.phase != PhaseReconfiguring || s.step != stepAuth {
		return phaseMismatch(s, f.Type)
	}
	tx, err := attrByte(f.Attributes, frame.AttrTransactionID)
	if err != nil {
		return err
	}
	if tx != s.txID {
		return fmt.Errorf("%w: transaction %d, want %d", ErrPhaseMismatch, tx, s.txID)
	}

	key, err := m.reconfigKey(c, s, f.Attributes)
	if err != nil {
		m.fail(c, s, "reconfiguration auth failed: "+err.Error())
		return err
	}

	wrapped, err := key.Seal(adFor(frame.TypeReconfigAuthConfirm), frame.Attributes{}.
		Add(frame.AttrConfiguratorNonce, s.cNonce).
		Add(frame.AttrEnrolleeNonce, s.eNonce).
		Add(frame.AttrReconfigFlags, []byte{0}))
	if err != nil {
		return err
	}
	attrs := frame.Attributes{}.
		Add(frame.AttrTransactionID, []byte{s.txID}).
		Add(frame.AttrWrappedData, wrapped)
	out := m.toEnrollee(s, frame.TypeReconfigAuthConfirm,
		frame.NewActionFrame(frame.TypeReconfigAuthConfirm, attrs).Encode(), false)

	s.key = key
	s.step = stepConfig
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseReconfiguring, "reconfiguration authenticated")
	return nil
}

// reconfigKey verifies the enrollee's Connector against the key it was
// configured with and derives the reconfiguration key.
func (m *Manager) reconfigKey(c *controllerState, s *session, attrs frame.Attributes) (*dppcrypto.SessionKey, error) {
	conn, err := attr(attrs, frame.AttrConnector)
	if err != nil {
		return nil, err
	}
	claims, err := dppcrypto.VerifyConnector(string(conn), &c.identity.CSign.PublicKey)
	if err != nil {
		return nil, err
	}
	nak, err := claims.NetAccessKey.ECDH()
	if err != nil {
		return nil, err
	}
	if !sameKey(nak, s.peerNAK) {
		return nil, fmt.Errorf("%w: connector key changed", dppcrypto.ErrAuthFailure)
	}
	eNonce, err := attr(attrs, frame.AttrEnrolleeNonce)
	if err != nil {
		return nil, err
	}

	key, err := m.suite.Reconfigure(c.identity.NetAccessKey, nak, s.cNonce, eNonce)
	if err != nil {
		return nil, err
	}
	inner, err := openWrapped(key, adFor(frame.TypeReconfigAuthResponse), attrs)
	if err != nil {
		return nil, err
	}
	if err := checkNonce(inner, frame.AttrConfiguratorNonce, s.cNonce); err != nil {
		return nil, err
	}
	s.eNonce = eNonce
	return key, nil
}

// controllerIntroduce answers a Peer Discovery Request from a configured
// enrollee with the controller's own Connector.
func (m *Manager) controllerIntroduce(c *controllerState, f *frame.ActionFrame, src frame.MAC, direct bool) error {
	tx, err := attrByte(f.Attributes, frame.AttrTransactionID)
	if err != nil {
		return err
	}
	conn, err := attr(f.Attributes, frame.AttrConnector)
	if err != nil {
		return err
	}

	reply := func(s *session, status frame.Status) {
		attrs := frame.Attributes{}.
			AddStatus(status).
			Add(frame.AttrTransactionID, []byte{tx})
		if status == frame.StatusOK {
			attrs = attrs.Add(frame.AttrConnector, []byte(c.identity.Connector))
		}
		m.toEnrollee(s, frame.TypePeerDiscoveryResponse,
			frame.NewActionFrame(frame.TypePeerDiscoveryResponse, attrs).Encode(), false)
	}

	claims, err := dppcrypto.VerifyConnector(string(conn), &c.identity.CSign.PublicKey)
	if err != nil {
		if s := c.sessions.byMACAddr(src); s != nil {
			reply(s, frame.StatusInvalidConnector)
		}
		return err
	}
	s := c.byNetAccessKey(claims)
	if s == nil {
		return fmt.Errorf("%w: connector from %s", ErrUnknownPeer, src)
	}
	if s.phase != PhaseConfigured {
		return phaseMismatch(s, f.Type)
	}
	nak, err := claims.NetAccessKey.ECDH()
	if err != nil {
		return err
	}
	pmk, err := m.suite.IntroductionKey(c.identity.NetAccessKey, nak)
	if err != nil {
		return err
	}

	if direct {
		c.sessions.bindMAC(s, src)
	}
	reply(s, frame.StatusOK)
	s.pmk = pmk
	m.events = append(m.events, Event{Type: EventIntroduced, PeerID: s.peerID, MAC: s.mac, Role: m.role})
	return nil
}

// fail ends the current exchange of s. A reconfiguration falls back to the
// last-known-good configuration; any other exchange evicts the session.
func (m *Manager) fail(c *controllerState, s *session, reason string) {
	if s.phase == PhaseReconfiguring {
		s.step = stepAnnounce
		s.pending = nil
		m.setPhase(s, PhaseConfigured, reason)
		return
	}
	m.evict(c, s, reason)
}

func (m *Manager) evict(c *controllerState, s *session, reason string) {
	m.setPhase(s, PhaseIdle, reason)
	c.sessions.evict(s.peerID)
}

func (m *Manager) controllerTick(c *controllerState, now time.Time) {
	for _, s := range c.sessions.sorted() {
		if s.deadline.IsZero() || now.Before(s.deadline) {
			continue
		}
		m.fail(c, s, "timeout in "+s.phase.String())
	}
}
