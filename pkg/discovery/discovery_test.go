package discovery

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
)

var testAL = frame.MAC{0x02, 0xA1, 0x00, 0x00, 0x00, 0x01}

func TestControllerTXTRoundtrip(t *testing.T) {
	info := &ControllerInfo{
		ALMAC:       testAL,
		Version:     2,
		GroupID:     "mesh",
		CSignHash:   []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		DeviceCount: 3,
	}

	txt := EncodeControllerTXT(info)
	if txt[TXTKeyALMAC] != "02:a1:00:00:00:01" {
		t.Errorf("al = %q", txt[TXTKeyALMAC])
	}
	if txt[TXTKeyCSignHash] != "0102030405060708" {
		t.Errorf("cs = %q, want truncated hash", txt[TXTKeyCSignHash])
	}

	got, err := DecodeControllerTXT(txt)
	if err != nil {
		t.Fatalf("DecodeControllerTXT() error = %v", err)
	}
	if got.ALMAC != info.ALMAC {
		t.Errorf("ALMAC = %s, want %s", got.ALMAC, info.ALMAC)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}
	if got.GroupID != "mesh" {
		t.Errorf("GroupID = %q, want mesh", got.GroupID)
	}
	if !reflect.DeepEqual(got.CSignHash, info.CSignHash[:CSignHashLen]) {
		t.Errorf("CSignHash = %x", got.CSignHash)
	}
	if got.DeviceCount != 3 {
		t.Errorf("DeviceCount = %d, want 3", got.DeviceCount)
	}
}

func TestControllerTXTOptionalFieldsOmitted(t *testing.T) {
	txt := EncodeControllerTXT(&ControllerInfo{ALMAC: testAL, Version: 1})
	if len(txt) != 2 {
		t.Errorf("len(txt) = %d, want 2: %v", len(txt), txt)
	}
}

func TestDecodeControllerTXTInvalid(t *testing.T) {
	tests := []struct {
		name    string
		txt     TXTRecordMap
		wantErr error
	}{
		{"MissingAL", TXTRecordMap{"v": "2"}, ErrMissingRequired},
		{"MissingVersion", TXTRecordMap{"al": "02:a1:00:00:00:01"}, ErrMissingRequired},
		{"BadAL", TXTRecordMap{"al": "nope", "v": "2"}, ErrInvalidTXTRecord},
		{"ZeroAL", TXTRecordMap{"al": "00:00:00:00:00:00", "v": "2"}, ErrInvalidTXTRecord},
		{"VersionZero", TXTRecordMap{"al": "02:a1:00:00:00:01", "v": "0"}, ErrInvalidVersion},
		{"VersionTooHigh", TXTRecordMap{"al": "02:a1:00:00:00:01", "v": "256"}, ErrInvalidVersion},
		{"BadHash", TXTRecordMap{"al": "02:a1:00:00:00:01", "v": "2", "cs": "zz"}, ErrInvalidTXTRecord},
		{"LongHash", TXTRecordMap{"al": "02:a1:00:00:00:01", "v": "2", "cs": "010203040506070809"}, ErrInvalidTXTRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeControllerTXT(tt.txt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeControllerTXT() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTXTRecordsToStrings(t *testing.T) {
	strs := TXTRecordsToStrings(TXTRecordMap{"v": "2", "al": "02:a1:00:00:00:01"})

	want := []string{"al=02:a1:00:00:00:01", "v=2"}
	if !reflect.DeepEqual(strs, want) {
		t.Errorf("TXTRecordsToStrings() = %v, want %v", strs, want)
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"v=2", "grp=a=b", "flag", "empty=", ""})

	if txt["v"] != "2" {
		t.Errorf("v = %q, want \"2\"", txt["v"])
	}
	if txt["grp"] != "a=b" {
		t.Errorf("grp = %q, want \"a=b\"", txt["grp"])
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v", v, ok)
	}
	if _, ok := txt["empty"]; !ok {
		t.Error("empty key missing")
	}
	if len(txt) != 4 {
		t.Errorf("len(txt) = %d, want 4", len(txt))
	}
}

func TestInstanceName(t *testing.T) {
	name := InstanceName(testAL)
	if name != "EC-02A100000001" {
		t.Errorf("InstanceName() = %q", name)
	}
	if err := ValidateInstanceName(name); err != nil {
		t.Errorf("ValidateInstanceName(%q) error = %v", name, err)
	}
	if err := ValidateInstanceName(""); err == nil {
		t.Error("empty name should be rejected")
	}
	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("ValidateInstanceName(long) error = %v", err)
	}
}

func TestAddressAggregation(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "fe80::1"})
	if !reflect.DeepEqual(addrs, []string{"10.0.0.1", "fe80::1"}) {
		t.Errorf("mergeAddresses() = %v", addrs)
	}
	addrs = removeAddresses(addrs, []string{"10.0.0.1"})
	if !reflect.DeepEqual(addrs, []string{"fe80::1"}) {
		t.Errorf("removeAddresses() = %v", addrs)
	}
}

func TestFirstControllerFiltersGroup(t *testing.T) {
	found := make(chan *ControllerService, 2)
	found <- &ControllerService{InstanceName: "EC-1", ControllerInfo: ControllerInfo{GroupID: "other"}}
	found <- &ControllerService{InstanceName: "EC-2", ControllerInfo: ControllerInfo{GroupID: "mesh"}}

	svc, err := firstController(context.Background(), found, "mesh")
	if err != nil {
		t.Fatalf("firstController() error = %v", err)
	}
	if svc.InstanceName != "EC-2" {
		t.Errorf("InstanceName = %q, want EC-2", svc.InstanceName)
	}
}

func TestFirstControllerClosedChannel(t *testing.T) {
	found := make(chan *ControllerService)
	close(found)
	if _, err := firstController(context.Background(), found, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFirstControllerTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := firstController(ctx, make(chan *ControllerService), "")
	if !errors.Is(err, ErrBrowseTimeout) {
		t.Errorf("error = %v, want ErrBrowseTimeout", err)
	}
}

func TestAdvertiserWithoutService(t *testing.T) {
	adv, err := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	if err != nil {
		t.Fatalf("NewMDNSAdvertiser() error = %v", err)
	}

	if err := adv.UpdateController(&ControllerInfo{ALMAC: testAL, Version: 2}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateController() error = %v, want ErrNotFound", err)
	}
	if err := adv.StopController(); err != nil {
		t.Errorf("StopController() error = %v", err)
	}
	if err := adv.AdvertiseController(context.Background(), &ControllerInfo{}); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("AdvertiseController() error = %v, want ErrMissingRequired", err)
	}
}
