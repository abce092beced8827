package easyconnect_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	meshmock "github.com/meshonboard/ec-go/internal/testharness/mock"
	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/easyconnect/mocks"
	"github.com/meshonboard/ec-go/pkg/frame"
)

func TestDirectOnboarding(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)

	b := mt.onboardDirect(ctrl, enr)

	assert.False(t, enr.Manager.IsEnrolleeOnboarding())
	assert.Equal(t, []easyconnect.Phase{
		easyconnect.PhaseBootstrapped,
		easyconnect.PhaseAuthenticating,
		easyconnect.PhaseAuthenticated,
		easyconnect.PhaseConfiguring,
		easyconnect.PhaseConfigured,
	}, mt.events["enrollee"].phases())
	assert.Equal(t, []easyconnect.Phase{
		easyconnect.PhaseBootstrapped,
		easyconnect.PhaseAuthenticating,
		easyconnect.PhaseAuthenticated,
		easyconnect.PhaseConfiguring,
		easyconnect.PhaseConfigured,
	}, mt.events["ctrl"].phases())

	cfg := enr.Manager.EnrolleeConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "mesh-backhaul", cfg.Discovery.SSID)
	assert.Equal(t, "correct horse", cfg.Cred.Pass)
	require.NotNil(t, cfg.Cred.CSign)

	// The Connector is signed by the controller and names the enrollee's role.
	csign, err := cfg.Cred.CSign.ECDSA()
	require.NoError(t, err)
	claims, err := dppcrypto.VerifyConnector(cfg.Cred.SignedConnector, csign)
	require.NoError(t, err)
	assert.Equal(t, dppcrypto.NetRoleMAPAgent, claims.Role())
	assert.Equal(t, ctrl.Manager.Configurator().CSignKeyHash(), dppcrypto.CSignKeyHash(csign))

	onboarded := mt.events["ctrl"].ofType(easyconnect.EventOnboarded)
	require.Len(t, onboarded, 1)
	assert.Equal(t, b.PeerID(), onboarded[0].PeerID)
	assert.Equal(t, enr.RadioMAC, onboarded[0].MAC)
	require.Len(t, mt.events["enrollee"].ofType(easyconnect.EventOnboarded), 1)

	sessions := ctrl.Manager.Sessions()
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Direct)
	assert.Equal(t, easyconnect.PhaseConfigured, sessions[0].Phase)
	assert.Empty(t, enr.Rejected())
	assert.Empty(t, ctrl.Rejected())
}

func TestRelayedOnboarding(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	agent := mt.node("agent", 2, easyconnect.RoleProxyAgent)
	enr := mt.node("enrollee", 3, easyconnect.RoleEnrollee)
	mt.fabric.Link(agent, enr)

	b := newBootstrap(t)
	require.True(t, ctrl.Manager.StartConfiguratorOnboarding(b.Public()))
	assert.Equal(t, easyconnect.PhaseBootstrapped, ctrl.Manager.SessionPhase(b.PeerID()))

	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))
	assert.True(t, enr.Manager.IsEnrolleeOnboarding())
	mt.pump()

	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.False(t, enr.Manager.IsEnrolleeOnboarding())

	// The agent turned the presence announcement into a chirp and relayed
	// every later enrollee frame encapsulated.
	chirps := agent.SentOfKind(meshmock.KindChirp)
	require.Len(t, chirps, 1)
	assert.Equal(t, ctrl.ALMAC, chirps[0].To)
	c, err := frame.ParseChirpValue(chirps[0].Data)
	require.NoError(t, err)
	assert.Equal(t, b.ChirpHash(), c.Hash)
	assert.Equal(t, enr.RadioMAC, c.EnrolleeMAC)

	encaps := agent.SentOfKind(meshmock.KindEncap)
	require.Len(t, encaps, 3, "auth response, config request, config result")
	for _, m := range encaps {
		e, err := frame.ParseEncapDPP(m.Data)
		require.NoError(t, err)
		assert.Equal(t, enr.RadioMAC, e.EnrolleeMAC)
	}

	// The controller never transmitted over the air.
	assert.Empty(t, ctrl.SentOfKind(meshmock.KindAction))
	sessions := ctrl.Manager.Sessions()
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].Direct)
	assert.Equal(t, 1, agent.Manager.RelayCount())
}

func TestUpgradeAndRelayThroughNewAgent(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	agent := mt.node("agent", 2, easyconnect.RoleEnrollee)
	mt.onboardDirect(ctrl, agent)
	onboardedWith := agent.Manager.EnrolleeConfig()

	require.True(t, agent.Manager.UpgradeToOnboardedProxyAgent())
	assert.Equal(t, easyconnect.RoleProxyAgent, agent.Manager.Role())
	kind, ok := agent.Manager.ConfiguratorKind()
	require.True(t, ok)
	assert.Equal(t, easyconnect.KindProxyAgent, kind)
	assert.Same(t, onboardedWith, agent.Manager.EnrolleeConfig())
	assert.Equal(t, easyconnect.PhaseIdle, agent.Manager.EnrolleePhase())
	require.Len(t, mt.events["agent"].ofType(easyconnect.EventRoleChanged), 1)

	// A second upgrade has no enrollee to replace, nor can it onboard again.
	assert.False(t, agent.Manager.UpgradeToOnboardedProxyAgent())
	assert.Equal(t, easyconnect.RoleProxyAgent, agent.Manager.Role())
	assert.False(t, agent.Manager.StartEnrolleeOnboarding(false, newBootstrap(t)))
	assert.False(t, agent.Manager.IsEnrolleeOnboarding())

	require.True(t, agent.Manager.ToggleCCE(true))
	assert.True(t, agent.CCE())
	assert.True(t, agent.Manager.CCEAdvertised())

	newcomer := mt.node("newcomer", 3, easyconnect.RoleEnrollee)
	mt.fabric.Link(agent, newcomer)
	b := newBootstrap(t)
	require.NoError(t, ctrl.Manager.AddBootstrap(b.Public()))
	require.True(t, newcomer.Manager.StartEnrolleeOnboarding(false, b))
	mt.pump()

	assert.Equal(t, easyconnect.PhaseConfigured, newcomer.Manager.EnrolleePhase())
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.Len(t, ctrl.Manager.Sessions(), 2)
}

func TestUpgradeFailureClearsCCE(t *testing.T) {
	mt := newMeshTest(t)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)

	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, newBootstrap(t)))
	assert.False(t, enr.Manager.UpgradeToOnboardedProxyAgent())
	assert.Equal(t, easyconnect.RoleEnrollee, enr.Manager.Role())
	assert.Equal(t, []bool{false}, enr.CCEToggles())
	assert.Equal(t, easyconnect.PhaseBootstrapped, enr.Manager.EnrolleePhase())
}

func TestReconfiguration(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	b := mt.onboardDirect(ctrl, enr)
	first := enr.Manager.EnrolleeConfig()

	require.True(t, enr.Manager.StartEnrolleeOnboarding(true, nil))
	assert.Equal(t, easyconnect.PhaseReconfiguring, enr.Manager.EnrolleePhase())
	assert.True(t, enr.Manager.IsEnrolleeOnboarding())
	mt.pump()

	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
	second := enr.Manager.EnrolleeConfig()
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Discovery, second.Discovery)
	assert.Len(t, mt.events["enrollee"].ofType(easyconnect.EventOnboarded), 2)
	assert.Len(t, mt.events["ctrl"].ofType(easyconnect.EventOnboarded), 2)
	assert.Empty(t, ctrl.Rejected())
	assert.Empty(t, enr.Rejected())
}

func TestReconfigurationRequiresConfigured(t *testing.T) {
	mt := newMeshTest(t)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)

	assert.False(t, enr.Manager.StartEnrolleeOnboarding(true, nil))
	assert.False(t, enr.Manager.IsEnrolleeOnboarding())
	assert.Equal(t, easyconnect.PhaseIdle, enr.Manager.EnrolleePhase())
}

func TestReconfigurationRollback(t *testing.T) {
	mt := newMeshTest(t)
	applier := mocks.NewMockConfigApplier(t)
	applier.EXPECT().Apply(mock.Anything).Return(nil).Once()
	applier.EXPECT().Apply(mock.Anything).Return(errors.New("radio busy")).Once()

	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee, func(c *easyconnect.Config) {
		c.ConfigApplier = applier
	})
	b := mt.onboardDirect(ctrl, enr)
	first := enr.Manager.EnrolleeConfig()

	require.True(t, enr.Manager.StartEnrolleeOnboarding(true, nil))
	mt.pump()

	// Both sides fall back to the configuration that was working.
	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
	assert.Same(t, first, enr.Manager.EnrolleeConfig())
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.Len(t, mt.events["enrollee"].ofType(easyconnect.EventOnboarded), 1)
	assert.Len(t, mt.events["ctrl"].ofType(easyconnect.EventOnboarded), 1)
	require.Len(t, enr.Rejected(), 1, "the refused configuration response")

	// A later reconfiguration still works from the retained state.
	applier.EXPECT().Apply(mock.Anything).Return(nil).Once()
	require.True(t, enr.Manager.StartEnrolleeOnboarding(true, nil))
	mt.pump()
	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
	assert.NotSame(t, first, enr.Manager.EnrolleeConfig())
}

func TestReconfigurationTimeoutKeepsConfig(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	mt.onboardDirect(ctrl, enr)
	first := enr.Manager.EnrolleeConfig()

	mt.fabric.Unlink(ctrl, enr)
	require.True(t, enr.Manager.StartEnrolleeOnboarding(true, nil))
	mt.pump()
	assert.Equal(t, easyconnect.PhaseReconfiguring, enr.Manager.EnrolleePhase())

	// Announcements repeat while waiting.
	before := len(enr.SentOfKind(meshmock.KindAction))
	enr.Manager.Tick(mt.clock.Advance(6 * time.Second))
	assert.Len(t, enr.SentOfKind(meshmock.KindAction), before+1)

	enr.Manager.Tick(mt.clock.Advance(30 * time.Second))
	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
	assert.Same(t, first, enr.Manager.EnrolleeConfig())
	assert.False(t, enr.Manager.IsEnrolleeOnboarding())
}

func TestEnrolleeRejectsInitialConfig(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee, func(c *easyconnect.Config) {
		c.ConfigApplier = easyconnect.ConfigApplierFunc(func(*easyconnect.ConfigObject) error {
			return errors.New("unsupported akm")
		})
	})
	mt.fabric.Link(ctrl, enr)

	b := newBootstrap(t)
	require.NoError(t, ctrl.Manager.AddBootstrap(b.Public()))
	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))
	mt.pump()

	assert.Equal(t, easyconnect.PhaseIdle, enr.Manager.EnrolleePhase())
	assert.Nil(t, enr.Manager.EnrolleeConfig())
	assert.Equal(t, easyconnect.PhaseIdle, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.Empty(t, ctrl.Manager.Sessions())
	assert.False(t, enr.Manager.IsEnrolleeOnboarding())
}

func TestControllerConfigSourceFailure(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController, func(c *easyconnect.Config) {
		c.ConfigSource = easyconnect.ConfigSourceFunc(func(easyconnect.PeerInfo, *easyconnect.ConfigRequest) (*easyconnect.ConfigObject, error) {
			return nil, errors.New("no credentials provisioned")
		})
	})
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	mt.fabric.Link(ctrl, enr)

	b := newBootstrap(t)
	require.NoError(t, ctrl.Manager.AddBootstrap(b.Public()))
	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))
	mt.pump()

	assert.Equal(t, easyconnect.PhaseIdle, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.Equal(t, easyconnect.PhaseIdle, enr.Manager.EnrolleePhase())
}

func TestAuthTimeout(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)

	b := newBootstrap(t)
	b.MAC, b.HasMAC = frame.MAC{0x02, 0xB1, 0, 0, 0, 9}, true
	require.True(t, ctrl.Manager.StartConfiguratorOnboarding(b.Public()))
	assert.Equal(t, easyconnect.PhaseAuthenticating, ctrl.Manager.SessionPhase(b.PeerID()))

	ctrl.Manager.Tick(mt.clock.Advance(5 * time.Second))
	assert.Equal(t, easyconnect.PhaseAuthenticating, ctrl.Manager.SessionPhase(b.PeerID()))

	ctrl.Manager.Tick(mt.clock.Advance(6 * time.Second))
	assert.Equal(t, easyconnect.PhaseIdle, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.Empty(t, ctrl.Manager.Sessions())

	changes := mt.events["ctrl"].ofType(easyconnect.EventPhaseChanged)
	last := changes[len(changes)-1]
	assert.Equal(t, easyconnect.PhaseAuthenticating, last.OldPhase)
	assert.Equal(t, easyconnect.PhaseIdle, last.NewPhase)
	assert.Contains(t, last.Reason, "timeout")
}

func TestEnrolleeChirpsUntilAnswered(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	enr.Associate(ctrl.RadioMAC)

	b := newBootstrap(t)
	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))
	// Starting again while bootstrapped resumes the same onboarding.
	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))
	require.Len(t, enr.SentOfKind(meshmock.KindAction), 1)
	assert.Equal(t, ctrl.RadioMAC, enr.SentOfKind(meshmock.KindAction)[0].To, "sent to the backhaul BSS")

	enr.Manager.Tick(mt.clock.Advance(2 * time.Second))
	assert.Len(t, enr.SentOfKind(meshmock.KindAction), 1)
	enr.Manager.Tick(mt.clock.Advance(4 * time.Second))
	assert.Len(t, enr.SentOfKind(meshmock.KindAction), 2)

	// Once in range and known, the next chirp completes onboarding.
	mt.fabric.Drop()
	mt.fabric.Link(ctrl, enr)
	require.NoError(t, ctrl.Manager.AddBootstrap(b.Public()))
	enr.Manager.Tick(mt.clock.Advance(6 * time.Second))
	mt.pump()
	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
}

func TestAdmissionDenied(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	ctrl.Capacity = 0
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	mt.fabric.Link(ctrl, enr)

	b := newBootstrap(t)
	require.NoError(t, ctrl.Manager.AddBootstrap(b.Public()))
	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))
	mt.pump()

	assert.Empty(t, ctrl.Manager.Sessions())
	assert.Len(t, ctrl.Rejected(), 1)
	assert.Equal(t, easyconnect.PhaseBootstrapped, enr.Manager.EnrolleePhase())
}

func TestUnknownChirpIgnored(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	mt.fabric.Link(ctrl, enr)

	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, newBootstrap(t)))
	mt.pump()

	assert.Empty(t, ctrl.Manager.Sessions())
	assert.Len(t, ctrl.Rejected(), 1)
	assert.Empty(t, ctrl.Sent())
}

func TestDuplicateFramesAnsweredIdentically(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	mt.fabric.Link(ctrl, enr)

	b := newBootstrap(t)
	require.NoError(t, ctrl.Manager.AddBootstrap(b.Public()))
	require.True(t, enr.Manager.StartEnrolleeOnboarding(false, b))

	// presence -> auth request -> auth response
	mt.fabric.Pump(2)
	require.Equal(t, easyconnect.PhaseAuthenticating, enr.Manager.EnrolleePhase())
	sent := enr.SentOfKind(meshmock.KindAction)
	authResp := sent[len(sent)-1].Data
	mt.fabric.Pump(1)
	require.Equal(t, easyconnect.PhaseAuthenticated, ctrl.Manager.SessionPhase(b.PeerID()))
	mt.fabric.Drop()

	confirms := len(ctrl.SentOfKind(meshmock.KindAction))
	require.True(t, ctrl.Manager.HandleActionFrame(authResp, enr.RadioMAC))
	assert.Equal(t, easyconnect.PhaseAuthenticated, ctrl.Manager.SessionPhase(b.PeerID()))
	resent := ctrl.SentOfKind(meshmock.KindAction)
	require.Len(t, resent, confirms+1)
	assert.Equal(t, resent[confirms-1].Data, resent[confirms].Data)

	// The repeated confirm finishes the handshake on the enrollee.
	mt.pump()
	assert.Equal(t, easyconnect.PhaseConfigured, enr.Manager.EnrolleePhase())
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
}

func TestNetworkIntroduction(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)

	assert.False(t, enr.Manager.StartNetworkIntroduction(), "not configured yet")
	b := mt.onboardDirect(ctrl, enr)

	require.True(t, enr.Manager.StartNetworkIntroduction())
	mt.pump()

	ctrlIntro := mt.events["ctrl"].ofType(easyconnect.EventIntroduced)
	require.Len(t, ctrlIntro, 1)
	assert.Equal(t, b.PeerID(), ctrlIntro[0].PeerID)
	require.Len(t, mt.events["enrollee"].ofType(easyconnect.EventIntroduced), 1)
	assert.Empty(t, enr.Rejected())

	assert.False(t, ctrl.Manager.StartNetworkIntroduction())
}

func TestForgetPeer(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	b := mt.onboardDirect(ctrl, enr)

	assert.False(t, ctrl.Manager.ForgetPeer("unknown"))
	require.True(t, ctrl.Manager.ForgetPeer(b.PeerID()))
	assert.Equal(t, easyconnect.PhaseIdle, ctrl.Manager.SessionPhase(b.PeerID()))

	// The bootstrap stays registered, so a new enrollee run onboards again.
	enr2 := mt.node("enrollee-again", 3, easyconnect.RoleEnrollee)
	mt.fabric.Link(ctrl, enr2)
	require.True(t, enr2.Manager.StartEnrolleeOnboarding(false, b))
	mt.pump()
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
	assert.Equal(t, easyconnect.PhaseConfigured, enr2.Manager.EnrolleePhase())
}

func TestSecondChirpForConfiguredPeerRejected(t *testing.T) {
	mt := newMeshTest(t)
	ctrl := mt.node("ctrl", 1, easyconnect.RoleController)
	enr := mt.node("enrollee", 2, easyconnect.RoleEnrollee)
	b := mt.onboardDirect(ctrl, enr)

	presence := frame.NewActionFrame(frame.TypePresenceAnnouncement,
		frame.Attributes{}.Add(frame.AttrResponderBootstrapHash, b.ChirpHash())).Encode()
	assert.False(t, ctrl.Manager.HandleActionFrame(presence, enr.RadioMAC))
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
}
