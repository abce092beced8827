package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
	"github.com/meshonboard/ec-go/pkg/log"
)

var ts = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.eclog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ok := frame.StatusOK
	return []log.Event{
		{
			Timestamp: ts, SessionID: "sess-aaaa-1111", Direction: log.DirectionIn,
			Carrier: log.CarrierAction, Category: log.CategoryMessage, LocalRole: log.RoleController,
			PeerMAC: "02:a1:00:00:00:02",
			Frame:   log.NewFrameEvent(frame.TypePresenceAnnouncement, []byte{0x04, 0x09}),
		},
		{
			Timestamp: ts.Add(10 * time.Millisecond), SessionID: "sess-aaaa-1111", Direction: log.DirectionOut,
			Carrier: log.CarrierAction, Category: log.CategoryMessage, LocalRole: log.RoleController,
			Frame: &log.FrameEvent{Type: frame.TypeAuthRequest, Size: 120, Status: &ok},
		},
		{
			Timestamp: ts.Add(20 * time.Millisecond), SessionID: "sess-aaaa-1111",
			Category: log.CategoryState, LocalRole: log.RoleController,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntitySession, OldState: "BOOTSTRAPPED", NewState: "AUTHENTICATING"},
		},
		{
			Timestamp: ts.Add(time.Second), Direction: log.DirectionIn, Carrier: log.CarrierEncap,
			Category: log.CategoryError, LocalRole: log.RoleProxyAgent,
			Error: &log.ErrorEventData{Message: "truncated TLV", Context: "ProcessProxyEncapDPPMessage"},
		},
	}
}

func TestViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-03-02T10:00:00.000000Z [sess-aaa] CONTROLLER IN  ACTION",
		"Peer: 02:a1:00:00:00:02",
		"BOOTSTRAPPED -> AUTHENTICATING",
		"Context: ProcessProxyEncapDPPMessage",
		"Size: 120 bytes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestViewFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	filter, err := FilterOptions{Category: "error"}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if strings.Contains(buf.String(), "CONTROLLER") {
		t.Errorf("filtered output contains controller events:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "truncated TLV") {
		t.Errorf("filtered output missing error event")
	}
}

func TestFilterOptionsInvalid(t *testing.T) {
	tests := []FilterOptions{
		{Direction: "sideways"},
		{Carrier: "smoke"},
		{Category: "gossip"},
		{Role: "bystander"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	}
	for _, o := range tests {
		if _, err := o.Build(); err == nil {
			t.Errorf("Build(%+v) = nil error", o)
		}
	}
}

func TestRunFilterWritesSubset(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "out.eclog")

	var buf bytes.Buffer
	err := RunFilter(path, outPath, FilterOptions{
		SessionID: "sess-aaaa-1111",
		TimeEnd:   ts.Add(15 * time.Millisecond).Format(time.RFC3339Nano),
	}, &buf)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 2 events") {
		t.Errorf("unexpected summary: %s", buf.String())
	}

	count := 0
	if err := each(outPath, log.Filter{}, func(log.Event) error { count++; return nil }); err != nil {
		t.Fatalf("reading filtered capture: %v", err)
	}
	if count != 2 {
		t.Errorf("filtered capture has %d events, want 2", count)
	}
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Total Events: 4",
		"ACTION:      2",
		"ENCAP:       1",
		"Sessions: 1",
		"[sess-aaa] 3 events, duration 20ms",
		"Phase: AUTHENTICATING",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)
	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestExport(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	if err := RunExport(path, "csv", csvPath); err != nil {
		t.Fatalf("RunExport csv: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("csv has %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session_id,role") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[3], "BOOTSTRAPPED->AUTHENTICATING") {
		t.Errorf("state row missing transition: %s", lines[3])
	}

	jsonPath := filepath.Join(dir, "out.jsonl")
	if err := RunExport(path, "jsonl", jsonPath); err != nil {
		t.Fatalf("RunExport jsonl: %v", err)
	}
	data, err = os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 4 {
		t.Errorf("jsonl has %d lines, want 4", n)
	}

	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
