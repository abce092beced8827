package easyconnect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/frame"
)

func newPeer(t *testing.T) *bootstrap.Data {
	t.Helper()
	b, err := bootstrap.Generate()
	require.NoError(t, err)
	return b.Public()
}

func TestSessionTableCreate(t *testing.T) {
	tbl := newSessionTable()
	peer := newPeer(t)
	now := time.Unix(1000, 0)

	s, err := tbl.create(peer, now)
	require.NoError(t, err)
	assert.Equal(t, peer.PeerID(), s.peerID)
	assert.Equal(t, PhaseIdle, s.phase)
	assert.NotEmpty(t, s.id)
	assert.Equal(t, 1, tbl.len())

	_, err = tbl.create(peer, now)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, 1, tbl.len())
}

func TestSessionTableLookups(t *testing.T) {
	tbl := newSessionTable()
	peer := newPeer(t)
	s, err := tbl.create(peer, time.Now())
	require.NoError(t, err)

	mac := frame.MAC{0x02, 0, 0, 0, 0, 0x42}
	tbl.bindMAC(s, mac)

	assert.Same(t, s, tbl.byMACAddr(mac))
	assert.Same(t, s, tbl.byChirpHash(peer.ChirpHash()))
	assert.Same(t, s, tbl.byKeyHash(peer.KeyHash()))
	assert.Nil(t, tbl.byChirpHash(peer.KeyHash()), "chirp and key hashes differ")

	moved := frame.MAC{0x02, 0, 0, 0, 0, 0x43}
	tbl.bindMAC(s, moved)
	assert.Nil(t, tbl.byMACAddr(mac))
	assert.Same(t, s, tbl.byMACAddr(moved))

	tbl.bindMAC(s, frame.BroadcastMAC)
	assert.Equal(t, moved, s.mac, "broadcast address never binds")

	assert.True(t, tbl.evict(s.peerID))
	assert.False(t, tbl.evict(s.peerID))
	assert.Nil(t, tbl.byMACAddr(moved))
	assert.Nil(t, tbl.byChirpHash(peer.ChirpHash()))
	assert.Equal(t, 0, tbl.len())
}

func TestSessionTableSorted(t *testing.T) {
	tbl := newSessionTable()
	base := time.Unix(1000, 0)

	var want []string
	for i := 0; i < 3; i++ {
		s, err := tbl.create(newPeer(t), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		want = append(want, s.peerID)
	}

	var got []string
	for _, s := range tbl.sorted() {
		got = append(got, s.peerID)
	}
	assert.Equal(t, want, got)
}

func TestSessionDuplicate(t *testing.T) {
	s := newSession(newPeer(t), time.Now())
	data := []byte{1, 2, 3}

	assert.False(t, s.duplicate(data))

	s.remember(data, nil)
	assert.False(t, s.duplicate(data), "no reply to repeat")

	s.remember(data, []outbound{{kind: outAction, data: []byte{9}}})
	assert.True(t, s.duplicate(data))
	assert.False(t, s.duplicate([]byte{1, 2, 4}))
}

func TestPhaseStrings(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "IDLE"},
		{PhaseBootstrapped, "BOOTSTRAPPED"},
		{PhaseAuthenticating, "AUTHENTICATING"},
		{PhaseAuthenticated, "AUTHENTICATED"},
		{PhaseConfiguring, "CONFIGURING"},
		{PhaseConfigured, "CONFIGURED"},
		{PhaseReconfiguring, "RECONFIGURING"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.phase.String())
	}
	assert.True(t, PhaseBootstrapped.handshaking())
	assert.True(t, PhaseAuthenticating.handshaking())
	assert.False(t, PhaseConfigured.handshaking())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig(RoleController)
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad role", func(c *Config) { c.Role = 7 }},
		{"zero auth timeout", func(c *Config) { c.AuthTimeout = 0 }},
		{"negative reconfig timeout", func(c *Config) { c.ReconfigTimeout = -time.Second }},
		{"zero chirp interval", func(c *Config) { c.ChirpInterval = 0 }},
		{"zero relay ttl", func(c *Config) { c.RelayTTL = 0 }},
		{"controller without group", func(c *Config) { c.GroupID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig(RoleController)
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigTimeoutFor(t *testing.T) {
	cfg := DefaultConfig(RoleEnrollee)
	assert.Equal(t, cfg.AuthTimeout, cfg.timeoutFor(PhaseAuthenticating))
	assert.Equal(t, cfg.ConfigTimeout, cfg.timeoutFor(PhaseAuthenticated))
	assert.Equal(t, cfg.ConfigTimeout, cfg.timeoutFor(PhaseConfiguring))
	assert.Equal(t, cfg.ReconfigTimeout, cfg.timeoutFor(PhaseReconfiguring))
	assert.Zero(t, cfg.timeoutFor(PhaseBootstrapped))
	assert.Zero(t, cfg.timeoutFor(PhaseConfigured))
}

func TestConfigObjectValidate(t *testing.T) {
	ok := &ConfigObject{
		WiFiTech:  WiFiTechMAP,
		Discovery: Discovery{SSID: "backhaul"},
		Cred:      Credential{AKM: "psk", Pass: "secret123"},
	}
	require.NoError(t, ok.Validate())

	noSSID := *ok
	noSSID.Discovery.SSID = ""
	assert.ErrorIs(t, noSSID.Validate(), ErrConfigRejected)

	noCred := *ok
	noCred.Cred.Pass = ""
	assert.ErrorIs(t, noCred.Validate(), ErrConfigRejected)

	connectorOnly := *ok
	connectorOnly.Cred.Pass = ""
	connectorOnly.Cred.SignedConnector = "a.b.c"
	assert.NoError(t, connectorOnly.Validate())
}

func TestConfigObjectJSON(t *testing.T) {
	body, err := marshalObject(&ConfigObject{
		WiFiTech:  WiFiTechMAP,
		Discovery: Discovery{SSID: "backhaul"},
		Cred:      Credential{AKM: "dpp+psk+sae", Pass: "secret123"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"wi-fi_tech":"map","discovery":{"ssid":"backhaul"},"cred":{"akm":"dpp+psk+sae","pass":"secret123"}}`, string(body))

	_, err = unmarshalConfigObject([]byte("{"))
	assert.ErrorIs(t, err, ErrConfigRejected)
	_, err = unmarshalConfigRequest([]byte("[]"))
	assert.ErrorIs(t, err, ErrConfigRejected)
}

func TestStaticConfigSource(t *testing.T) {
	src := StaticConfigSource{SSID: "backhaul", Passphrase: "secret123"}

	obj, err := src.ConfigFor(PeerInfo{PeerID: "p"}, &ConfigRequest{WiFiTech: WiFiTechInfra})
	require.NoError(t, err)
	assert.Equal(t, WiFiTechInfra, obj.WiFiTech)
	assert.Equal(t, "dpp+psk+sae", obj.Cred.AKM)

	obj, err = src.ConfigFor(PeerInfo{}, nil)
	require.NoError(t, err)
	assert.Equal(t, WiFiTechMAP, obj.WiFiTech)
}

func TestConfigFuncAdapters(t *testing.T) {
	errBusy := errors.New("busy")
	var applier ConfigApplier = ConfigApplierFunc(func(*ConfigObject) error { return errBusy })
	assert.ErrorIs(t, applier.Apply(&ConfigObject{}), errBusy)

	var source ConfigSource = ConfigSourceFunc(func(p PeerInfo, _ *ConfigRequest) (*ConfigObject, error) {
		return &ConfigObject{Discovery: Discovery{SSID: p.PeerID}}, nil
	})
	obj, err := source.ConfigFor(PeerInfo{PeerID: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", obj.Discovery.SSID)
}
