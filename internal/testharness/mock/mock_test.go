package mock_test

import (
	"errors"
	"testing"

	"github.com/meshonboard/ec-go/internal/testharness/mock"
	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

func mac(b byte) frame.MAC {
	return frame.MAC{0x02, 0, 0, 0, 0, b}
}

func TestNodeBasic(t *testing.T) {
	n := mock.NewNode("agent-1", mac(1), mac(0x11))

	if n.Name != "agent-1" {
		t.Errorf("Expected name agent-1, got %s", n.Name)
	}
	if !n.CanOnboardAdditional() {
		t.Error("Expected unlimited capacity by default")
	}
	if n.BackhaulInfo().Associated {
		t.Error("Expected no backhaul association initially")
	}

	n.Associate(mac(0x22))
	bh := n.BackhaulInfo()
	if !bh.Associated || bh.BSSID != mac(0x22) || bh.StationMAC != mac(0x11) {
		t.Errorf("Unexpected backhaul info %+v", bh)
	}

	n.Capacity = 0
	if n.CanOnboardAdditional() {
		t.Error("Expected no capacity")
	}
}

func TestNodeToggleCCE(t *testing.T) {
	n := mock.NewNode("agent-1", mac(1), mac(0x11))

	if !n.ToggleCCE(true) || !n.CCE() {
		t.Fatal("Expected CCE on")
	}
	n.CCEFails = true
	if n.ToggleCCE(true) {
		t.Error("Expected enabling to fail")
	}
	if !n.ToggleCCE(false) || n.CCE() {
		t.Error("Expected disabling to succeed")
	}

	toggles := n.CCEToggles()
	if len(toggles) != 3 || toggles[0] != true || toggles[2] != false {
		t.Errorf("Unexpected toggles %v", toggles)
	}
}

func TestFabricRadioRange(t *testing.T) {
	f := mock.NewFabric()
	a := f.Add(mock.NewNode("a", mac(1), mac(0x11)))
	b := f.Add(mock.NewNode("b", mac(2), mac(0x12)))
	c := f.Add(mock.NewNode("c", mac(3), mac(0x13)))
	f.Link(a, b)

	if err := a.SendActionFrame(frame.BroadcastMAC, []byte{0x04, 0x09}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}
	if f.Pending() != 1 {
		t.Errorf("Expected 1 delivery for broadcast, got %d", f.Pending())
	}

	err := a.SendActionFrame(c.RadioMAC, []byte{0x04, 0x09})
	if !errors.Is(err, mock.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}

	f.Unlink(a, b)
	if err := a.SendActionFrame(b.RadioMAC, []byte{0x04, 0x09}); !errors.Is(err, mock.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange after unlink, got %v", err)
	}

	if got := len(a.SentOfKind(mock.KindAction)); got != 3 {
		t.Errorf("Expected 3 recorded action frames, got %d", got)
	}
}

func TestFabricBackhaul(t *testing.T) {
	f := mock.NewFabric()
	a := f.Add(mock.NewNode("a", mac(1), mac(0x11)))
	f.Add(mock.NewNode("b", mac(2), mac(0x12)))
	f.Add(mock.NewNode("c", mac(3), mac(0x13)))

	if err := a.SendChirp(easyconnect.Destination{}, []byte{0xD3}); err != nil {
		t.Fatalf("SendChirp: %v", err)
	}
	if f.Pending() != 2 {
		t.Errorf("Expected broadcast to reach 2 nodes, got %d", f.Pending())
	}

	err := a.SendEncapDPP(easyconnect.Destination{ALMAC: mac(9)}, []byte{0xCD}, nil)
	if !errors.Is(err, mock.ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}

	a.LinkDown = true
	if err := a.SendChirp(easyconnect.Destination{}, []byte{0xD3}); !errors.Is(err, mock.ErrLinkDown) {
		t.Errorf("Expected ErrLinkDown, got %v", err)
	}

	// Nodes without an engine swallow deliveries.
	if n := f.Pump(10); n != 2 {
		t.Errorf("Expected 2 deliveries, got %d", n)
	}
	if f.Pending() != 0 {
		t.Error("Expected empty queue")
	}
}

func TestFabricAttachController(t *testing.T) {
	f := mock.NewFabric()
	ctrl := mock.NewNode("ctrl", mac(1), mac(0x11))

	cfg := easyconnect.DefaultConfig(easyconnect.RoleController)
	cfg.ConfigSource = easyconnect.StaticConfigSource{SSID: "backhaul", Passphrase: "secret123"}
	m, err := f.Attach(ctrl, cfg)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if ctrl.Manager != m {
		t.Error("Expected node to hold the engine")
	}
	if f.ControllerALMAC() != ctrl.ALMAC {
		t.Errorf("Expected controller %s, got %s", ctrl.ALMAC, f.ControllerALMAC())
	}
	if got := ctrl.MeshInfo().ControllerALMAC; got != ctrl.ALMAC {
		t.Errorf("MeshInfo controller = %s", got)
	}
}
