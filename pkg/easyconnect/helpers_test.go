package easyconnect_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshonboard/ec-go/internal/testharness/mock"
	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type eventLog struct {
	mu     sync.Mutex
	events []easyconnect.Event
}

func (l *eventLog) handle(ev easyconnect.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofType(t easyconnect.EventType) []easyconnect.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []easyconnect.Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// phases returns the NewPhase of each phase change, in order.
func (l *eventLog) phases() []easyconnect.Phase {
	var out []easyconnect.Phase
	for _, ev := range l.ofType(easyconnect.EventPhaseChanged) {
		out = append(out, ev.NewPhase)
	}
	return out
}

// meshTest is a simulated mesh with a shared clock.
type meshTest struct {
	t      *testing.T
	fabric *mock.Fabric
	clock  *testClock
	events map[string]*eventLog
}

func newMeshTest(t *testing.T) *meshTest {
	return &meshTest{
		t:      t,
		fabric: mock.NewFabric(),
		clock:  newTestClock(),
		events: make(map[string]*eventLog),
	}
}

func (mt *meshTest) config(role easyconnect.Role) easyconnect.Config {
	cfg := easyconnect.DefaultConfig(role)
	cfg.Clock = mt.clock.Now
	if role == easyconnect.RoleController {
		cfg.ConfigSource = easyconnect.StaticConfigSource{SSID: "mesh-backhaul", Passphrase: "correct horse"}
	}
	return cfg
}

func (mt *meshTest) node(name string, id byte, role easyconnect.Role, mutate ...func(*easyconnect.Config)) *mock.Node {
	mt.t.Helper()
	n := mock.NewNode(name, frame.MAC{0x02, 0xA1, 0, 0, 0, id}, frame.MAC{0x02, 0xB1, 0, 0, 0, id})
	cfg := mt.config(role)
	for _, fn := range mutate {
		fn(&cfg)
	}
	m, err := mt.fabric.Attach(n, cfg)
	require.NoError(mt.t, err)

	l := &eventLog{}
	m.OnEvent(l.handle)
	mt.events[name] = l
	return n
}

func (mt *meshTest) pump() {
	mt.fabric.Pump(500)
	require.Zero(mt.t, mt.fabric.Pending(), "network did not settle")
}

func newBootstrap(t *testing.T) *bootstrap.Data {
	t.Helper()
	b, err := bootstrap.Generate()
	require.NoError(t, err)
	return b
}

// onboardDirect runs a complete onboarding of enrollee by ctrl over the air.
func (mt *meshTest) onboardDirect(ctrl, enrollee *mock.Node) *bootstrap.Data {
	mt.t.Helper()
	mt.fabric.Link(ctrl, enrollee)
	b := newBootstrap(mt.t)
	require.NoError(mt.t, ctrl.Manager.AddBootstrap(b.Public()))
	require.True(mt.t, enrollee.Manager.StartEnrolleeOnboarding(false, b))
	mt.pump()
	require.Equal(mt.t, easyconnect.PhaseConfigured, enrollee.Manager.EnrolleePhase())
	require.Equal(mt.t, easyconnect.PhaseConfigured, ctrl.Manager.SessionPhase(b.PeerID()))
	return b
}
