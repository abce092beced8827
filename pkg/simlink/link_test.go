package simlink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

var (
	macA = frame.MAC{0x02, 0xA1, 0, 0, 0, 1}
	alA  = frame.MAC{0x02, 0xB1, 0, 0, 0, 1}
	macB = frame.MAC{0x02, 0xA1, 0, 0, 0, 2}
	alB  = frame.MAC{0x02, 0xB1, 0, 0, 0, 2}
)

type delivery struct {
	kind    Kind
	payload []byte
	chirp   []byte
	src     frame.MAC
}

type recorder struct {
	ch chan delivery
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan delivery, 16)}
}

func (r *recorder) HandleActionFrame(data []byte, src frame.MAC) bool {
	r.ch <- delivery{kind: KindAction, payload: data, src: src}
	return true
}

func (r *recorder) HandleGASFrame(data []byte, src frame.MAC) bool {
	r.ch <- delivery{kind: KindGAS, payload: data, src: src}
	return true
}

func (r *recorder) ProcessChirpNotification(tlv []byte) bool {
	r.ch <- delivery{kind: KindChirp, payload: tlv}
	return true
}

func (r *recorder) ProcessProxyEncapDPPMessage(encap, chirp []byte) bool {
	r.ch <- delivery{kind: KindEncap, payload: encap, chirp: chirp}
	return true
}

func (r *recorder) next(t *testing.T) delivery {
	t.Helper()
	select {
	case d := <-r.ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return delivery{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case d := <-r.ch:
		t.Fatalf("unexpected delivery of %s", d.kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func listen(t *testing.T, mac, al frame.MAC) *Link {
	t.Helper()
	l, err := Listen(Config{Listen: "127.0.0.1:0", MAC: mac, ALMAC: al})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// pair returns two links that can reach each other.
func pair(t *testing.T) (*Link, *Link) {
	a := listen(t, macA, alA)
	b := listen(t, macB, alB)
	require.NoError(t, a.AddPeer(b.Addr().String()))
	require.NoError(t, b.AddPeer(a.Addr().String()))
	return a, b
}

func serve(t *testing.T, l *Link, r Receiver) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, r) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := &Envelope{Kind: KindEncap, Src: alA, Dst: alB, Payload: []byte{1, 2, 3}, Chirp: []byte{4}}
	data, err := in.Encode()
	require.NoError(t, err)

	out, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEnvelopeValidation(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"zero kind", Envelope{Payload: []byte{1}}},
		{"unknown kind", Envelope{Kind: 42, Payload: []byte{1}}},
		{"empty payload", Envelope{Kind: KindChirp}},
		{"chirp on action", Envelope{Kind: KindAction, Payload: []byte{1}, Chirp: []byte{2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.env.Encode(); !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("Encode() error = %v, want ErrInvalidEnvelope", err)
			}
		})
	}

	_, err := DecodeEnvelope([]byte{0xFF, 0x00})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	beacon := Envelope{Kind: KindBeacon, Src: macA, CCE: true}
	_, err = beacon.Encode()
	assert.NoError(t, err)
}

func TestAddressing(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want bool
	}{
		{"radio broadcast", Envelope{Kind: KindAction, Src: macB, Dst: frame.MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}, true},
		{"radio unicast", Envelope{Kind: KindGAS, Src: macB, Dst: macA}, true},
		{"radio other", Envelope{Kind: KindAction, Src: macB, Dst: alA}, false},
		{"radio own echo", Envelope{Kind: KindAction, Src: macA}, false},
		{"1905 to AL", Envelope{Kind: KindChirp, Src: alB, Dst: alA}, true},
		{"1905 to radio MAC", Envelope{Kind: KindEncap, Src: alB, Dst: macA}, false},
		{"1905 multicast", Envelope{Kind: KindChirp, Src: alB}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.env.addressedTo(macA, alA); got != tt.want {
				t.Errorf("addressedTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinkDelivers(t *testing.T) {
	a, b := pair(t)
	rec := newRecorder()
	serve(t, b, rec)

	action := frame.NewActionFrame(frame.TypePresenceAnnouncement,
		frame.Attributes{}.Add(frame.AttrResponderBootstrapHash, make([]byte, 32))).Encode()
	require.NoError(t, a.SendActionFrame(frame.MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, action))
	d := rec.next(t)
	assert.Equal(t, KindAction, d.kind)
	assert.Equal(t, action, d.payload)
	assert.Equal(t, macA, d.src)

	gas := frame.NewConfigRequest(7, frame.Attributes{}).Encode()
	require.NoError(t, a.SendActionFrame(macB, gas))
	assert.Equal(t, KindGAS, rec.next(t).kind)

	require.NoError(t, a.SendChirp(easyconnect.Destination{ALMAC: alB}, []byte{0xAA}))
	assert.Equal(t, KindChirp, rec.next(t).kind)

	require.NoError(t, a.SendEncapDPP(easyconnect.Destination{}, []byte{0xBB}, []byte{0xCC}))
	d = rec.next(t)
	assert.Equal(t, KindEncap, d.kind)
	assert.Equal(t, []byte{0xCC}, d.chirp)

	// Frames for somebody else are dropped.
	require.NoError(t, a.SendActionFrame(frame.MAC{0x02, 0, 0, 0, 0, 9}, action))
	rec.none(t)
}

func TestSendRejectsUnknownCarrier(t *testing.T) {
	a, _ := pair(t)
	assert.Error(t, a.SendActionFrame(macB, []byte{0x01, 0x02}))
}

func TestCCEBeacon(t *testing.T) {
	a, b := pair(t)
	serve(t, b, newRecorder())

	require.True(t, a.ToggleCCE(true))
	assert.True(t, a.CCE())
	require.Eventually(t, func() bool { return len(b.CCEAdvertisers()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, macA, b.CCEAdvertisers()[0])

	require.True(t, a.ToggleCCE(false))
	require.Eventually(t, func() bool { return len(b.CCEAdvertisers()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSinkQueries(t *testing.T) {
	calls := 0
	l, err := Listen(Config{
		Listen:               "127.0.0.1:0",
		ALMAC:                alA,
		CanOnboardAdditional: func() bool { calls++; return false },
	})
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.CanOnboardAdditional())
	assert.Equal(t, 1, calls)

	assert.True(t, l.MeshInfo().ControllerALMAC.IsZero())
	l.SetControllerALMAC(alB)
	assert.Equal(t, easyconnect.MeshInfo{ALMAC: alA, ControllerALMAC: alB}, l.MeshInfo())

	l.SetBackhaul(easyconnect.BackhaulInfo{Associated: true, BSSID: macB})
	assert.True(t, l.BackhaulInfo().Associated)
}

func TestClosedLink(t *testing.T) {
	a, _ := pair(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.SendChirp(easyconnect.Destination{}, []byte{1}), ErrClosed)
	assert.False(t, a.ToggleCCE(true))
	assert.ErrorIs(t, a.Serve(context.Background(), newRecorder()), ErrClosed)
}

type eventSink struct {
	mu     sync.Mutex
	events []easyconnect.Event
}

func (s *eventSink) handle(ev easyconnect.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *eventSink) onboarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Type == easyconnect.EventOnboarded {
			return true
		}
	}
	return false
}

func TestOnboardingOverUDP(t *testing.T) {
	ctrlLink, enrLink := pair(t)

	ccfg := easyconnect.DefaultConfig(easyconnect.RoleController)
	ccfg.ConfigSource = easyconnect.StaticConfigSource{SSID: "udp-backhaul", Passphrase: "secret"}
	ctrl, err := easyconnect.New(ccfg, easyconnect.NewTransport(ctrlLink))
	require.NoError(t, err)

	enr, err := easyconnect.New(easyconnect.DefaultConfig(easyconnect.RoleEnrollee), easyconnect.NewTransport(enrLink))
	require.NoError(t, err)
	events := &eventSink{}
	enr.OnEvent(events.handle)

	serve(t, ctrlLink, ctrl)
	serve(t, enrLink, enr)

	b, err := bootstrap.Generate()
	require.NoError(t, err)
	require.NoError(t, ctrl.AddBootstrap(b.Public()))
	require.True(t, enr.StartEnrolleeOnboarding(false, b))

	require.Eventually(t, events.onboarded, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, easyconnect.PhaseConfigured, enr.EnrolleePhase())
	assert.Equal(t, "udp-backhaul", enr.EnrolleeConfig().Discovery.SSID)
	assert.Equal(t, easyconnect.PhaseConfigured, ctrl.SessionPhase(b.PeerID()))
}
