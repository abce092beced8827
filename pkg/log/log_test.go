package log

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
)

func sampleEvents(base time.Time) []Event {
	status := frame.StatusOK
	return []Event{
		{
			Timestamp: base,
			SessionID: "s-1",
			Direction: DirectionIn,
			Carrier:   CarrierChirp,
			Category:  CategoryMessage,
			LocalRole: RoleController,
			PeerMAC:   "02:00:00:00:00:01",
			Frame:     NewFrameEvent(frame.TypePresenceAnnouncement, []byte{1, 2, 3}),
		},
		{
			Timestamp: base.Add(time.Millisecond),
			SessionID: "s-1",
			Direction: DirectionOut,
			Carrier:   CarrierEncap,
			Category:  CategoryMessage,
			LocalRole: RoleController,
			Frame:     &FrameEvent{Type: frame.TypeAuthRequest, Size: 90, Status: &status},
		},
		{
			Timestamp: base.Add(2 * time.Millisecond),
			SessionID: "s-1",
			Category:  CategoryState,
			LocalRole: RoleController,
			StateChange: &StateChangeEvent{
				Entity:   StateEntitySession,
				OldState: "BOOTSTRAPPED",
				NewState: "AUTHENTICATING",
			},
		},
		{
			Timestamp: base.Add(3 * time.Millisecond),
			Direction: DirectionIn,
			Carrier:   CarrierAction,
			Category:  CategoryError,
			LocalRole: RoleEnrollee,
			Error:     &ErrorEventData{Message: "frame truncated", Context: "HandleActionFrame"},
		},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	for _, ev := range sampleEvents(now) {
		data, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent: %v", err)
		}
		got, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		if !got.Timestamp.Equal(ev.Timestamp) {
			t.Errorf("timestamp: got %v, want %v", got.Timestamp, ev.Timestamp)
		}
		if got.Category != ev.Category || got.Carrier != ev.Carrier || got.LocalRole != ev.LocalRole {
			t.Errorf("header mismatch: got %+v, want %+v", got, ev)
		}
		if (got.Frame == nil) != (ev.Frame == nil) || (got.StateChange == nil) != (ev.StateChange == nil) {
			t.Errorf("payload mismatch: got %+v", got)
		}
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	data := bytes.Repeat([]byte{0xEE}, MaxFrameDataSize+10)
	fe := NewFrameEvent(frame.TypeAuthResponse, data)
	if !fe.Truncated {
		t.Error("expected truncated")
	}
	if fe.Size != len(data) || len(fe.Data) != MaxFrameDataSize {
		t.Errorf("size %d data %d", fe.Size, len(fe.Data))
	}

	data[0] = 0x00
	if fe.Data[0] != 0xEE {
		t.Error("frame data must be copied")
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.eclog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	base := time.Now()
	for _, ev := range sampleEvents(base) {
		fl.Log(ev)
	}
	if fl.Count() != 4 {
		t.Errorf("count: got %d, want 4", fl.Count())
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	fl.Log(Event{}) // ignored after close

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	n := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		n++
	}
	if n != 4 {
		t.Errorf("read %d events, want 4", n)
	}

	carrier := CarrierEncap
	fr, err := NewFilteredReader(path, Filter{Carrier: &carrier})
	if err != nil {
		t.Fatalf("NewFilteredReader: %v", err)
	}
	defer fr.Close()
	ev, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ev.Frame == nil || ev.Frame.Type != frame.TypeAuthRequest {
		t.Errorf("unexpected event %+v", ev)
	}
	if _, err := fr.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestFilterMatches(t *testing.T) {
	base := time.Now()
	events := sampleEvents(base)
	role := RoleEnrollee
	end := base.Add(time.Millisecond)
	cat := CategoryState

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"session", Filter{SessionID: "s-1"}, 3},
		{"peer mac", Filter{PeerMAC: "02:00:00:00:00:01"}, 1},
		{"role", Filter{Role: &role}, 1},
		{"time end", Filter{TimeEnd: &end}, 1},
		{"category", Filter{Category: &cat}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 0
			for _, ev := range events {
				if tt.filter.Matches(ev) {
					n++
				}
			}
			if n != tt.want {
				t.Errorf("got %d, want %d", n, tt.want)
			}
		})
	}
}

type countingLogger struct{ n int }

func (c *countingLogger) Log(Event) { c.n++ }

func TestMultiLogger(t *testing.T) {
	a, b := &countingLogger{}, &countingLogger{}
	m := NewMultiLogger(a, nil, b, NoopLogger{})
	m.Log(Event{})
	m.Log(Event{})
	if a.n != 2 || b.n != 2 {
		t.Errorf("got %d/%d, want 2/2", a.n, b.n)
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(sampleEvents(time.Now())[1])

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	want := map[string]any{
		"direction":  "OUT",
		"carrier":    "ENCAP",
		"role":       "CONTROLLER",
		"session_id": "s-1",
		"frame_type": "AUTH_REQUEST",
		"status":     "OK",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}
