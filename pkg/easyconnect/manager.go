package easyconnect

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/frame"
	"github.com/meshonboard/ec-go/pkg/log"
)

// Manager is a node's onboarding engine. All routing and state mutation
// happens under a single lock; emitted frames and events are delivered
// after it is released.
type Manager struct {
	mu sync.Mutex

	config    Config
	transport Transport
	suite     dppcrypto.Suite
	logger    *slog.Logger
	plog      log.Logger
	now       func() time.Time

	role Role

	// At most one of configurator and enrollee is set.
	configurator *configurator
	enrollee     *enrollee

	enrolleeOnboarding bool

	outbox   []outbound
	events   []Event
	handlers []EventHandler
}

// configurator is the tagged configurator variant. Exactly one of
// controller and proxy is set, matching kind.
type configurator struct {
	kind       ConfiguratorKind
	controller *controllerState
	proxy      *proxyState
}

// New creates a Manager bound to transport for its lifetime.
func New(cfg Config, transport Transport) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !transport.valid() {
		return nil, fmt.Errorf("%w: incomplete transport", ErrInvalidConfig)
	}

	m := &Manager{
		config:    cfg,
		transport: transport,
		suite:     cfg.Suite,
		logger:    cfg.Logger,
		plog:      cfg.ProtocolLogger,
		now:       cfg.Clock,
		role:      cfg.Role,
	}
	if m.suite == nil {
		m.suite = dppcrypto.DefaultSuite()
	}
	if m.plog == nil {
		m.plog = log.NoopLogger{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.config.ConfigApplier == nil {
		m.config.ConfigApplier = acceptAll{}
	}

	switch cfg.Role {
	case RoleController:
		identity := cfg.Configurator
		if identity == nil {
			var err error
			identity, err = dppcrypto.NewConfigurator(cfg.GroupID)
			if err != nil {
				return nil, fmt.Errorf("configurator identity: %w", err)
			}
		}
		source := cfg.ConfigSource
		if source == nil {
			return nil, fmt.Errorf("%w: controller needs a config source", ErrInvalidConfig)
		}
		m.configurator = &configurator{
			kind:       KindController,
			controller: newControllerState(identity, source),
		}
	case RoleProxyAgent:
		m.configurator = &configurator{kind: KindProxyAgent, proxy: newProxyState(nil)}
	case RoleEnrollee:
		m.enrollee = &enrollee{}
	}

	return m, nil
}

// OnEvent registers an event handler.
func (m *Manager) OnEvent(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// do runs fn inside the critical section, then flushes frames and events.
func (m *Manager) do(op string, fn func() error) bool {
	m.mu.Lock()
	err := fn()
	if err != nil {
		m.debugLog(op+": rejected", "error", err)
	}
	out, events, handlers := m.outbox, m.events, m.handlers
	m.outbox, m.events = nil, nil
	m.mu.Unlock()

	m.flush(out)
	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
	return err == nil
}

// HandleActionFrame routes a received DPP public action frame. It returns
// false for malformed frames, frame types the node's role does not handle,
// and messages the addressed session does not expect.
func (m *Manager) HandleActionFrame(data []byte, src frame.MAC) bool {
	return m.do("HandleActionFrame", func() error {
		f, err := frame.ParseActionFrame(data)
		if err != nil {
			m.logError(log.CarrierAction, "HandleActionFrame", err, src)
			return err
		}

		switch {
		case m.configurator != nil:
			if !configuratorAccepts(f.Type) {
				return fmt.Errorf("%w: %s", ErrUnexpectedFrame, f.Type)
			}
			m.logFrame(log.DirectionIn, log.CarrierAction, f.Type, data, "", src)
			if m.configurator.kind == KindProxyAgent {
				return m.proxyFromEnrollee(m.configurator.proxy, data, f, src)
			}
			return m.controllerAction(m.configurator.controller, data, f, src, true)

		case m.enrollee != nil:
			if !enrolleeAccepts(f.Type) {
				return fmt.Errorf("%w: %s", ErrUnexpectedFrame, f.Type)
			}
			m.logFrame(log.DirectionIn, log.CarrierAction, f.Type, data, m.enrollee.sessionID(), src)
			return m.enrolleeAction(data, f, src)
		}
		return ErrRoleViolation
	})
}

// HandleGASFrame routes a received GAS public action frame. Initial
// requests go to the configurator, initial responses to the enrollee.
// Comeback frames are not used by this engine and are rejected.
func (m *Manager) HandleGASFrame(data []byte, src frame.MAC) bool {
	return m.do("HandleGASFrame", func() error {
		g, err := frame.ParseGASFrame(data)
		if err != nil {
			m.logError(log.CarrierGAS, "HandleGASFrame", err, src)
			return err
		}

		switch g.Action {
		case frame.GASInitialRequest:
			if m.configurator == nil {
				return ErrNoConfigurator
			}
			m.logFrame(log.DirectionIn, log.CarrierGAS, frame.TypeGAS, data, "", src)
			if m.configurator.kind == KindProxyAgent {
				return m.proxyGASFromEnrollee(m.configurator.proxy, data, src)
			}
			return m.controllerGAS(m.configurator.controller, data, g, src, true)

		case frame.GASInitialResponse:
			if m.enrollee == nil {
				return ErrNoEnrollee
			}
			m.logFrame(log.DirectionIn, log.CarrierGAS, frame.TypeGAS, data, m.enrollee.sessionID(), src)
			return m.enrolleeGAS(data, g, src)
		}
		return fmt.Errorf("%w: %s", ErrUnexpectedFrame, g.Action)
	})
}

// StartConfiguratorOnboarding registers a peer's bootstrapping data with the
// controller and opens a session for it. If the data carries a MAC the
// Authentication Request is sent at once; otherwise the session waits in
// PhaseBootstrapped for the peer's chirp.
func (m *Manager) StartConfiguratorOnboarding(b *bootstrap.Data) bool {
	return m.do("StartConfiguratorOnboarding", func() error {
		c, err := m.controller()
		if err != nil {
			return err
		}
		return m.controllerStart(c, b)
	})
}

// StartEnrolleeOnboarding begins onboarding with the node's own
// bootstrapping key, or with reconfigure set, re-authenticates an already
// configured enrollee. The enrollee-onboarding flag is set to the result.
func (m *Manager) StartEnrolleeOnboarding(reconfigure bool, b *bootstrap.Data) bool {
	var ok bool
	m.do("StartEnrolleeOnboarding", func() error {
		err := m.enrolleeStart(reconfigure, b)
		ok = err == nil
		m.enrolleeOnboarding = ok
		return err
	})
	return ok
}

// IsEnrolleeOnboarding reports whether the node is mid-onboarding as an
// enrollee.
func (m *Manager) IsEnrolleeOnboarding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enrolleeOnboarding
}

// ProcessChirpNotification handles a DPP Chirp Value TLV received over the
// backhaul.
func (m *Manager) ProcessChirpNotification(tlv []byte) bool {
	return m.do("ProcessChirpNotification", func() error {
		if m.configurator == nil {
			return ErrNoConfigurator
		}
		c, err := frame.ParseChirpValue(tlv)
		if err != nil {
			m.logError(log.CarrierChirp, "ProcessChirpNotification", err, frame.MAC{})
			return err
		}
		m.logFrame(log.DirectionIn, log.CarrierChirp, frame.TypePresenceAnnouncement, tlv, "", c.EnrolleeMAC)

		if m.configurator.kind == KindProxyAgent {
			return m.proxyChirp(m.configurator.proxy, c)
		}
		if !c.HashValid {
			m.debugLog("chirp withdrawn", "hash", hex.EncodeToString(c.Hash))
			return nil
		}
		return m.controllerChirp(m.configurator.controller, c.Hash, c.EnrolleeMAC, false)
	})
}

// ProcessProxyEncapDPPMessage handles a 1905 Encap DPP TLV and its optional
// Chirp Value TLV. On a controller the encapsulated frame comes from an
// enrollee through a proxy agent; on a proxy agent it comes from the
// controller and is relayed to the enrollee.
func (m *Manager) ProcessProxyEncapDPPMessage(encap, chirp []byte) bool {
	return m.do("ProcessProxyEncapDPPMessage", func() error {
		if m.configurator == nil {
			return ErrNoConfigurator
		}
		e, err := frame.ParseEncapDPP(encap)
		if err != nil {
			m.logError(log.CarrierEncap, "ProcessProxyEncapDPPMessage", err, frame.MAC{})
			return err
		}
		var c *frame.ChirpValue
		if len(chirp) > 0 {
			if c, err = frame.ParseChirpValue(chirp); err != nil {
				m.logError(log.CarrierChirp, "ProcessProxyEncapDPPMessage", err, e.EnrolleeMAC)
				return err
			}
		}
		m.logFrame(log.DirectionIn, log.CarrierEncap, e.FrameType, e.Frame, "", e.EnrolleeMAC)

		if m.configurator.kind == KindProxyAgent {
			return m.proxyFromController(m.configurator.proxy, e, c)
		}
		return m.controllerEncap(m.configurator.controller, e)
	})
}

// ToggleCCE switches the Configurator Connectivity Element on or off. It is
// valid only on a proxy agent. Every failure clears the CCE.
func (m *Manager) ToggleCCE(enable bool) bool {
	return m.do("ToggleCCE", func() error {
		var err error
		c := m.configurator
		switch {
		case c == nil:
			err = ErrNoConfigurator
		case c.kind != KindProxyAgent:
			err = fmt.Errorf("%w: CCE on %s", ErrRoleViolation, c.kind)
		case !m.transport.ToggleCCE(enable):
			err = fmt.Errorf("%w: toggle CCE %t", ErrTransport, enable)
		default:
			m.setCCE(c.proxy, enable, "")
			return nil
		}

		m.clearCCE(err.Error())
		return err
	})
}

// UpgradeToOnboardedProxyAgent replaces a configured enrollee with a proxy
// agent configurator bound to the same transport and identity. On failure
// the role is unchanged and the CCE is cleared.
func (m *Manager) UpgradeToOnboardedProxyAgent() bool {
	return m.do("UpgradeToOnboardedProxyAgent", func() error {
		err := m.upgrade()
		if err != nil {
			m.clearCCE(err.Error())
		}
		return err
	})
}

func (m *Manager) upgrade() error {
	e := m.enrollee
	if e == nil {
		return ErrNoEnrollee
	}
	if e.sess == nil || e.sess.phase != PhaseConfigured {
		return ErrNotConfigured
	}

	old := m.role
	m.configurator = &configurator{kind: KindProxyAgent, proxy: newProxyState(e.sess)}
	m.enrollee = nil
	m.role = RoleProxyAgent
	m.enrolleeOnboarding = false

	m.logState(log.StateEntityRole, old.String(), m.role.String(), "onboarded", "")
	m.events = append(m.events, Event{Type: EventRoleChanged, Role: m.role})
	return nil
}

// setCCE records a successful CCE change.
func (m *Manager) setCCE(p *proxyState, enable bool, reason string) {
	if p.cce == enable {
		return
	}
	p.cce = enable
	m.logState(log.StateEntityCCE, onOff(!enable), onOff(enable), reason, "")
	m.events = append(m.events, Event{Type: EventCCEChanged, Role: m.role, CCE: enable})
}

// clearCCE removes every CCE advertisement regardless of prior state.
func (m *Manager) clearCCE(reason string) {
	m.transport.ToggleCCE(false)
	if c := m.configurator; c != nil && c.kind == KindProxyAgent {
		m.setCCE(c.proxy, false, reason)
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// AddBootstrap registers bootstrapping data so the controller can match
// the peer's chirps without opening a session yet.
func (m *Manager) AddBootstrap(b *bootstrap.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.controller()
	if err != nil {
		return err
	}
	if b == nil || b.PublicKey == nil {
		return ErrBadBootstrap
	}
	c.addBootstrap(b)
	return nil
}

// ForgetPeer evicts a peer's session on the controller so the peer can be
// onboarded afresh. The registered bootstrapping data is kept.
func (m *Manager) ForgetPeer(peerID string) bool {
	return m.do("ForgetPeer", func() error {
		c, err := m.controller()
		if err != nil {
			return err
		}
		s := c.sessions.get(peerID)
		if s == nil {
			return ErrUnknownPeer
		}
		m.evict(c, s, "forgotten")
		return nil
	})
}

// StartNetworkIntroduction sends a Peer Discovery Request carrying the
// enrollee's Connector toward its configurator.
func (m *Manager) StartNetworkIntroduction() bool {
	return m.do("StartNetworkIntroduction", m.enrolleeIntroduce)
}

// Tick expires sessions whose phase deadline has passed, re-sends the
// enrollee's presence announcement and prunes the proxy relay cache.
func (m *Manager) Tick(now time.Time) {
	m.do("Tick", func() error {
		if c := m.configurator; c != nil {
			if c.kind == KindController {
				m.controllerTick(c.controller, now)
			} else {
				m.proxyTick(c.proxy, now)
			}
		}
		if m.enrollee != nil {
			m.enrolleeTick(now)
		}
		return nil
	})
}

// Run calls Tick every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(m.now())
		}
	}
}

// Role returns the node's current role.
func (m *Manager) Role() Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.role
}

// ConfiguratorKind returns the active configurator variant, if any.
func (m *Manager) ConfiguratorKind() (ConfiguratorKind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.configurator == nil {
		return 0, false
	}
	return m.configurator.kind, true
}

// Sessions returns a snapshot of the controller's sessions, or the
// enrollee's own session.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SessionInfo
	if c := m.configurator; c != nil && c.kind == KindController {
		for _, s := range c.controller.sessions.sorted() {
			out = append(out, s.info())
		}
	}
	if e := m.enrollee; e != nil && e.sess != nil {
		out = append(out, e.sess.info())
	}
	return out
}

// SessionPhase returns the phase of the controller's session for peerID,
// or PhaseIdle if there is none.
func (m *Manager) SessionPhase(peerID string) Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.configurator; c != nil && c.kind == KindController {
		if s := c.controller.sessions.get(peerID); s != nil {
			return s.phase
		}
	}
	return PhaseIdle
}

// EnrolleePhase returns the phase of the node's own onboarding.
func (m *Manager) EnrolleePhase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrollee == nil || m.enrollee.sess == nil {
		return PhaseIdle
	}
	return m.enrollee.sess.phase
}

// EnrolleeConfig returns the enrollee's last-known-good configuration. After
// the upgrade it returns the configuration the proxy agent was onboarded with.
func (m *Manager) EnrolleeConfig() *ConfigObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrollee != nil && m.enrollee.sess != nil {
		return m.enrollee.sess.config
	}
	if c := m.configurator; c != nil && c.kind == KindProxyAgent {
		return c.proxy.onboarded
	}
	return nil
}

// CCEAdvertised reports whether the proxy agent currently advertises the CCE.
func (m *Manager) CCEAdvertised() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.configurator
	return c != nil && c.kind == KindProxyAgent && c.proxy.cce
}

// Configurator returns the controller's signing identity.
func (m *Manager) Configurator() *dppcrypto.Configurator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.configurator; c != nil && c.kind == KindController {
		return c.controller.identity
	}
	return nil
}

func (m *Manager) controller() (*controllerState, error) {
	c := m.configurator
	if c == nil {
		return nil, ErrNoConfigurator
	}
	if c.kind != KindController {
		return nil, fmt.Errorf("%w: %s is not a controller", ErrRoleViolation, c.kind)
	}
	return c.controller, nil
}

// setPhase moves a session to p, arming the phase deadline.
func (m *Manager) setPhase(s *session, p Phase, reason string) {
	old := s.phase
	s.phase = p
	if d := m.config.timeoutFor(p); d > 0 {
		s.deadline = m.now().Add(d)
	} else {
		s.deadline = time.Time{}
	}
	if old == p {
		return
	}
	if m.enrollee != nil && m.enrollee.sess == s {
		m.enrolleeOnboarding = p != PhaseIdle && p != PhaseConfigured
	}

	m.debugLog("phase change", "peer", short(s.peerID), "old", old, "new", p, "reason", reason)
	m.logState(log.StateEntitySession, old.String(), p.String(), reason, s.id, s)
	m.events = append(m.events, Event{
		Type:     EventPhaseChanged,
		PeerID:   s.peerID,
		MAC:      s.mac,
		OldPhase: old,
		NewPhase: p,
		Role:     m.role,
		Reason:   reason,
	})
	if p == PhaseConfigured && (old == PhaseConfiguring || old == PhaseReconfiguring) && reason == reasonConfigured {
		m.events = append(m.events, Event{
			Type:   EventOnboarded,
			PeerID: s.peerID,
			MAC:    s.mac,
			Role:   m.role,
			Config: s.config,
		})
	}
}

const reasonConfigured = "configured"

func (m *Manager) localRole() log.Role {
	switch m.role {
	case RoleController:
		return log.RoleController
	case RoleProxyAgent:
		return log.RoleProxyAgent
	default:
		return log.RoleEnrollee
	}
}

func (m *Manager) logFrame(dir log.Direction, carrier log.Carrier, t frame.Type, data []byte, sessionID string, peer frame.MAC) {
	ev := log.Event{
		Timestamp: m.now(),
		SessionID: sessionID,
		Direction: dir,
		Carrier:   carrier,
		Category:  log.CategoryMessage,
		LocalRole: m.localRole(),
		Frame:     log.NewFrameEvent(t, data),
	}
	if !peer.IsZero() {
		ev.PeerMAC = peer.String()
	}
	m.plog.Log(ev)
}

func (m *Manager) logState(entity log.StateEntity, old, next, reason, sessionID string, s ...*session) {
	ev := log.Event{
		Timestamp: m.now(),
		SessionID: sessionID,
		Category:  log.CategoryState,
		LocalRole: m.localRole(),
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: next,
			Reason:   reason,
		},
	}
	if len(s) > 0 {
		ev.PeerID = s[0].peerID
		if s[0].hasMAC {
			ev.PeerMAC = s[0].mac.String()
		}
	}
	m.plog.Log(ev)
}

func (m *Manager) logError(carrier log.Carrier, op string, err error, peer frame.MAC) {
	ev := log.Event{
		Timestamp: m.now(),
		Direction: log.DirectionIn,
		Carrier:   carrier,
		Category:  log.CategoryError,
		LocalRole: m.localRole(),
		Error:     &log.ErrorEventData{Message: err.Error(), Context: op},
	}
	var pe *frame.ParseError
	if errors.As(err, &pe) {
		ev.Error.Context = op + ": " + pe.Kind.String()
	}
	if !peer.IsZero() {
		ev.PeerMAC = peer.String()
	}
	m.plog.Log(ev)
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

// short abbreviates a peer ID for log lines.
func short(peerID string) string {
	if len(peerID) > 12 {
		return peerID[:12]
	}
	return peerID
}

// configuratorAccepts reports whether a configurator handles frames of
// type t arriving from an enrollee.
func configuratorAccepts(t frame.Type) bool {
	switch t {
	case frame.TypePresenceAnnouncement, frame.TypeAuthResponse,
		frame.TypeReconfigAnnouncement, frame.TypeReconfigAuthResponse,
		frame.TypeConfigResult, frame.TypeConnStatusResult,
		frame.TypePeerDiscoveryRequest:
		return true
	}
	return false
}

// enrolleeAccepts reports whether an enrollee handles frames of type t.
func enrolleeAccepts(t frame.Type) bool {
	switch t {
	case frame.TypeAuthRequest, frame.TypeAuthConfirm,
		frame.TypeReconfigAuthRequest, frame.TypeReconfigAuthConfirm,
		frame.TypePeerDiscoveryResponse:
		return true
	}
	return false
}
