package easyconnect

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// enrollee is the node's own onboarding. sess is nil while idle.
type enrollee struct {
	sess *session
}

func (e *enrollee) sessionID() string {
	if e == nil || e.sess == nil {
		return ""
	}
	return e.sess.id
}

func (m *Manager) enrolleeStart(reconfigure bool, b *bootstrap.Data) error {
	e := m.enrollee
	if e == nil {
		return ErrNoEnrollee
	}
	s := e.sess

	if reconfigure {
		switch {
		case s == nil:
			return ErrNotConfigured
		case s.phase == PhaseReconfiguring:
			return nil
		case s.phase != PhaseConfigured || s.connector == "" || s.csign == nil:
			return fmt.Errorf("%w: in %s", ErrNotConfigured, s.phase)
		}
		s.step = stepAnnounce
		m.setPhase(s, PhaseReconfiguring, "reconfiguration started")
		return m.reconfigAnnounce(s)
	}

	if s != nil {
		if s.phase == PhaseConfigured || s.phase == PhaseReconfiguring {
			return fmt.Errorf("%w: already %s", ErrSessionActive, s.phase)
		}
		// Onboarding already under way.
		return nil
	}
	if b == nil || b.PrivateKey == nil {
		return fmt.Errorf("%w: %w", ErrBadBootstrap, bootstrap.ErrNoPrivateKey)
	}

	s = newSession(b, m.now())
	e.sess = s
	m.setPhase(s, PhaseBootstrapped, "onboarding started")
	m.announce(s)
	return nil
}

// uplink is where an enrollee sends unsolicited frames: its backhaul AP
// when associated, otherwise every listener.
func (m *Manager) uplink() frame.MAC {
	if bh := m.transport.BackhaulInfo(); bh.Associated && !bh.BSSID.IsZero() {
		return bh.BSSID
	}
	return frame.BroadcastMAC
}

// announce sends a Presence Announcement carrying the chirp hash.
func (m *Manager) announce(s *session) {
	attrs := frame.Attributes{}.Add(frame.AttrResponderBootstrapHash, s.peer.ChirpHash())
	m.actionOut(m.uplink(), frame.TypePresenceAnnouncement,
		frame.NewActionFrame(frame.TypePresenceAnnouncement, attrs).Encode(), s.id)
	s.nextChirp = m.now().Add(m.config.ChirpInterval)
}

func (m *Manager) reconfigAnnounce(s *session) error {
	attrs := frame.Attributes{}.
		Add(frame.AttrCSignKeyHash, dppcrypto.CSignKeyHash(s.csign)).
		Add(frame.AttrResponderBootstrapHash, s.peer.KeyHash())
	m.actionOut(m.uplink(), frame.TypeReconfigAnnouncement,
		frame.NewActionFrame(frame.TypeReconfigAnnouncement, attrs).Encode(), s.id)
	s.nextChirp = m.now().Add(m.config.ChirpInterval)
	return nil
}

func (m *Manager) enrolleeAction(data []byte, f *frame.ActionFrame, src frame.MAC) error {
	s := m.enrollee.sess
	if s == nil {
		return fmt.Errorf("%w: %s with no onboarding in progress", ErrPhaseMismatch, f.Type)
	}
	if s.duplicate(data) {
		m.debugLog("retransmitting reply to duplicate", "type", f.Type)
		m.queue(s.lastTx...)
		return nil
	}

	switch f.Type {
	case frame.TypeAuthRequest:
		return m.enrolleeAuthRequest(s, data, f, src)
	case frame.TypeAuthConfirm:
		return m.enrolleeAuthConfirm(s, data, f, src)
	case frame.TypeReconfigAuthRequest:
		return m.enrolleeReconfigRequest(s, data, f, src)
	case frame.TypeReconfigAuthConfirm:
		return m.enrolleeReconfigConfirm(s, data, f, src)
	case frame.TypePeerDiscoveryResponse:
		return m.enrolleeIntroduced(s, f)
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedFrame, f.Type)
}

// enrolleeAuthRequest answers an Authentication Request. Requests that do
// not verify are dropped without leaving PhaseBootstrapped.
func (m *Manager) enrolleeAuthRequest(s *session, data []byte, f *frame.ActionFrame, src frame.MAC) error {
	if s.phase != PhaseBootstrapped {
		return phaseMismatch(s, f.Type)
	}
	r, err := m.suite.Respond(s.peer)
	if err != nil {
		return err
	}
	resp, err := r.Respond(f.Attributes)
	if err != nil {
		return err
	}

	s.responder = r
	s.setMAC(src)
	out := m.actionOut(src, frame.TypeAuthResponse, frame.NewActionFrame(frame.TypeAuthResponse, resp).Encode(), s.id)
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseAuthenticating, "auth request accepted")
	return nil
}

func (m *Manager) enrolleeAuthConfirm(s *session, data []byte, f *frame.ActionFrame, src frame.MAC) error {
	if s.phase != PhaseAuthenticating || s.responder == nil {
		return phaseMismatch(s, f.Type)
	}
	key, err := s.responder.Finish(f.Attributes)
	if err != nil {
		m.enrolleeFail(s, "authentication failed: "+err.Error())
		return err
	}
	s.responder = nil
	s.key = key
	m.setPhase(s, PhaseAuthenticated, "authenticated")

	out, err := m.requestConfig(s, src)
	if err != nil {
		m.enrolleeFail(s, "config request: "+err.Error())
		return err
	}
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseConfiguring, "config request sent")
	return nil
}

// requestConfig sends the DPP Configuration Request. A first onboarding
// generates the network access key; reconfiguration keeps the current one.
func (m *Manager) requestConfig(s *session, dst frame.MAC) (outbound, error) {
	if s.ownNAK == nil {
		nak, err := ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return outbound{}, err
		}
		s.ownNAK = nak
	}
	eNonce, err := dppcrypto.NewNonce()
	if err != nil {
		return outbound{}, err
	}
	body, err := marshalObject(&ConfigRequest{
		Name:         m.config.DeviceName,
		WiFiTech:     WiFiTechMAP,
		NetRole:      dppcrypto.NetRoleMAPAgent,
		NetAccessKey: dppcrypto.JWKFromECDH(s.ownNAK.PublicKey()),
	})
	if err != nil {
		return outbound{}, err
	}
	wrapped, err := s.key.Seal(adConfigRequest, frame.Attributes{}.
		Add(frame.AttrEnrolleeNonce, eNonce).
		Add(frame.AttrConfigRequestObject, body))
	if err != nil {
		return outbound{}, err
	}

	s.dialogToken++
	if s.dialogToken == 0 {
		s.dialogToken = 1
	}
	s.eNonce = eNonce
	g := frame.NewConfigRequest(s.dialogToken, frame.Attributes{}.Add(frame.AttrWrappedData, wrapped))
	return m.actionOut(dst, frame.TypeGAS, g.Encode(), s.id), nil
}

// enrolleeGAS handles the DPP Configuration Response.
func (m *Manager) enrolleeGAS(data []byte, g *frame.GASFrame, src frame.MAC) error {
	s := m.enrollee.sess
	if s == nil {
		return fmt.Errorf("%w: config response with no onboarding in progress", ErrPhaseMismatch)
	}
	if s.duplicate(data) {
		m.queue(s.lastTx...)
		return nil
	}
	if !(s.phase == PhaseConfiguring || s.phase == PhaseReconfiguring && s.step == stepConfig) {
		return phaseMismatch(s, g.Action)
	}
	if g.DialogToken != s.dialogToken {
		return fmt.Errorf("%w: dialog token %d, want %d", ErrPhaseMismatch, g.DialogToken, s.dialogToken)
	}

	attrs, err := g.Attributes()
	if err != nil {
		return err
	}
	status, ok := attrs.Status()
	if !ok {
		return fmt.Errorf("%w: %s", dppcrypto.ErrMissingAttribute, frame.AttrStatus)
	}
	if status != frame.StatusOK {
		m.enrolleeFail(s, "configurator reported "+status.String())
		return fmt.Errorf("%w: configurator status %s", ErrConfigRejected, status)
	}
	inner, err := openWrapped(s.key, adConfigResponse, attrs)
	if err != nil {
		return err
	}
	if err := checkNonce(inner, frame.AttrEnrolleeNonce, s.eNonce); err != nil {
		return err
	}
	body, err := attr(inner, frame.AttrConfigurationObject)
	if err != nil {
		return err
	}

	obj, csign, reject := m.acceptConfig(s, body)
	resultStatus := frame.StatusOK
	if reject != nil {
		resultStatus = frame.StatusConfigRejected
	}
	wrapped, err := s.key.Seal(adFor(frame.TypeConfigResult), frame.Attributes{}.
		AddStatus(resultStatus).
		Add(frame.AttrEnrolleeNonce, s.eNonce))
	if err != nil {
		return err
	}
	out := m.actionOut(src, frame.TypeConfigResult, frame.NewActionFrame(frame.TypeConfigResult,
		frame.Attributes{}.Add(frame.AttrWrappedData, wrapped)).Encode(), s.id)
	s.remember(data, []outbound{out})

	if reject != nil {
		m.enrolleeFail(s, "configuration rejected: "+reject.Error())
		return reject
	}
	s.config = obj
	s.connector = obj.Cred.SignedConnector
	s.csign = csign
	s.step = stepAnnounce
	m.setPhase(s, PhaseConfigured, reasonConfigured)
	return nil
}

// acceptConfig validates a received configuration, verifies its Connector
// and hands it to the applier.
func (m *Manager) acceptConfig(s *session, body []byte) (*ConfigObject, *ecdsa.PublicKey, error) {
	obj, err := unmarshalConfigObject(body)
	if err != nil {
		return nil, nil, err
	}
	if err := obj.Validate(); err != nil {
		return nil, nil, err
	}

	var csign *ecdsa.PublicKey
	if obj.Cred.SignedConnector != "" {
		if obj.Cred.CSign == nil {
			return nil, nil, fmt.Errorf("%w: connector without C-sign key", ErrConfigRejected)
		}
		csign, err = obj.Cred.CSign.ECDSA()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrConfigRejected, err)
		}
		claims, err := dppcrypto.VerifyConnector(obj.Cred.SignedConnector, csign)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrConfigRejected, err)
		}
		nak, err := claims.NetAccessKey.ECDH()
		if err != nil || !sameKey(nak, s.ownNAK.PublicKey()) {
			return nil, nil, fmt.Errorf("%w: connector not issued for our access key", ErrConfigRejected)
		}
	}

	if err := m.config.ConfigApplier.Apply(obj); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfigRejected, err)
	}
	return obj, csign, nil
}

func (m *Manager) enrolleeReconfigRequest(s *session, data []byte, f *frame.ActionFrame, src frame.MAC) error {
	if s.phase != PhaseReconfiguring || s.step != stepAnnounce {
		return phaseMismatch(s, f.Type)
	}
	tx, err := attrByte(f.Attributes, frame.AttrTransactionID)
	if err != nil {
		return err
	}
	cNonce, err := attr(f.Attributes, frame.AttrConfiguratorNonce)
	if err != nil {
		return err
	}
	conn, err := attr(f.Attributes, frame.AttrConnector)
	if err != nil {
		return err
	}

	claims, err := dppcrypto.VerifyConnector(string(conn), s.csign)
	if err != nil {
		m.enrolleeFail(s, "configurator connector: "+err.Error())
		return err
	}
	if claims.Role() != dppcrypto.NetRoleConfigurator {
		m.enrolleeFail(s, "connector role "+claims.Role())
		return fmt.Errorf("%w: role %q", dppcrypto.ErrInvalidConnector, claims.Role())
	}
	confNAK, err := claims.NetAccessKey.ECDH()
	if err != nil {
		return err
	}

	eNonce, err := dppcrypto.NewNonce()
	if err != nil {
		return err
	}
	key, err := m.suite.Reconfigure(s.ownNAK, confNAK, cNonce, eNonce)
	if err != nil {
		m.enrolleeFail(s, "reconfiguration key: "+err.Error())
		return err
	}
	wrapped, err := key.Seal(adFor(frame.TypeReconfigAuthResponse),
		frame.Attributes{}.Add(frame.AttrConfiguratorNonce, cNonce))
	if err != nil {
		return err
	}

	attrs := frame.Attributes{}.
		Add(frame.AttrTransactionID, []byte{tx}).
		Add(frame.AttrProtocolVersion, []byte{protocolVersion}).
		Add(frame.AttrConnector, []byte(s.connector)).
		Add(frame.AttrEnrolleeNonce, eNonce).
		Add(frame.AttrWrappedData, wrapped)
	out := m.actionOut(src, frame.TypeReconfigAuthResponse,
		frame.NewActionFrame(frame.TypeReconfigAuthResponse, attrs).Encode(), s.id)

	s.key = key
	s.txID = tx
	s.cNonce = cNonce
	s.eNonce = eNonce
	s.peerNAK = confNAK
	s.step = stepAuth
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseReconfiguring, "reconfiguration auth response sent")
	return nil
}

func (m *Manager) enrolleeReconfigConfirm(s *session, data []byte, f *frame.ActionFrame, src frame.MAC) error {
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
	inner, err := openWrapped(s.key, adFor(frame.TypeReconfigAuthConfirm), f.Attributes)
	if err != nil {
		m.enrolleeFail(s, "reconfiguration confirm: "+err.Error())
		return err
	}
	if err := checkNonce(inner, frame.AttrConfiguratorNonce, s.cNonce); err != nil {
		m.enrolleeFail(s, err.Error())
		return err
	}
	if err := checkNonce(inner, frame.AttrEnrolleeNonce, s.eNonce); err != nil {
		m.enrolleeFail(s, err.Error())
		return err
	}

	s.step = stepConfig
	out, err := m.requestConfig(s, src)
	if err != nil {
		m.enrolleeFail(s, "config request: "+err.Error())
		return err
	}
	s.remember(data, []outbound{out})
	m.setPhase(s, PhaseReconfiguring, "reconfiguration config request sent")
	return nil
}

// enrolleeIntroduce sends a Peer Discovery Request with the enrollee's
// Connector.
func (m *Manager) enrolleeIntroduce() error {
	e := m.enrollee
	if e == nil {
		return ErrNoEnrollee
	}
	s := e.sess
	if s == nil || s.phase != PhaseConfigured || s.connector == "" {
		return ErrNotConfigured
	}
	s.txID++
	attrs := frame.Attributes{}.
		Add(frame.AttrTransactionID, []byte{s.txID}).
		Add(frame.AttrProtocolVersion, []byte{protocolVersion}).
		Add(frame.AttrConnector, []byte(s.connector))
	dst := m.uplink()
	if s.hasMAC {
		dst = s.mac
	}
	m.actionOut(dst, frame.TypePeerDiscoveryRequest,
		frame.NewActionFrame(frame.TypePeerDiscoveryRequest, attrs).Encode(), s.id)
	return nil
}

func (m *Manager) enrolleeIntroduced(s *session, f *frame.ActionFrame) error {
	if s.phase != PhaseConfigured || s.connector == "" {
		return phaseMismatch(s, f.Type)
	}
	tx, err := attrByte(f.Attributes, frame.AttrTransactionID)
	if err != nil {
		return err
	}
	if tx != s.txID {
		return fmt.Errorf("%w: transaction %d, want %d", ErrPhaseMismatch, tx, s.txID)
	}
	if status, ok := f.Attributes.Status(); !ok || status != frame.StatusOK {
		return fmt.Errorf("%w: peer discovery %s", dppcrypto.ErrPeerStatus, status)
	}
	conn, err := attr(f.Attributes, frame.AttrConnector)
	if err != nil {
		return err
	}
	peer, err := dppcrypto.VerifyConnector(string(conn), s.csign)
	if err != nil {
		return err
	}
	own, err := dppcrypto.VerifyConnector(s.connector, s.csign)
	if err != nil {
		return err
	}
	if !own.SharesGroup(peer) {
		return dppcrypto.ErrNoCommonGroup
	}
	nak, err := peer.NetAccessKey.ECDH()
	if err != nil {
		return err
	}
	pmk, err := m.suite.IntroductionKey(s.ownNAK, nak)
	if err != nil {
		return err
	}
	s.pmk = pmk
	m.events = append(m.events, Event{Type: EventIntroduced, PeerID: s.peerID, MAC: s.mac, Role: m.role})
	return nil
}

// enrolleeFail ends the current exchange. A failed reconfiguration keeps
// the last-known-good configuration; anything else abandons the onboarding.
func (m *Manager) enrolleeFail(s *session, reason string) {
	s.responder = nil
	if s.phase == PhaseReconfiguring {
		s.step = stepAnnounce
		m.setPhase(s, PhaseConfigured, reason)
		return
	}
	m.setPhase(s, PhaseIdle, reason)
	m.enrollee.sess = nil
}

func (m *Manager) enrolleeTick(now time.Time) {
	s := m.enrollee.sess
	if s == nil {
		return
	}
	if !s.deadline.IsZero() && !now.Before(s.deadline) {
		m.enrolleeFail(s, "timeout in "+s.phase.String())
		return
	}
	if now.Before(s.nextChirp) {
		return
	}
	switch {
	case s.phase == PhaseBootstrapped:
		m.announce(s)
	case s.phase == PhaseReconfiguring && s.step == stepAnnounce:
		m.reconfigAnnounce(s)
	}
}
