package discovery

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/meshonboard/ec-go/pkg/frame"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeControllerTXT creates TXT records for controller discovery.
func EncodeControllerTXT(info *ControllerInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyALMAC] = info.ALMAC.String()
	txt[TXTKeyVersion] = strconv.FormatUint(uint64(info.Version), 10)

	if info.GroupID != "" {
		txt[TXTKeyGroup] = info.GroupID
	}
	if len(info.CSignHash) > 0 {
		h := info.CSignHash
		if len(h) > CSignHashLen {
			h = h[:CSignHashLen]
		}
		txt[TXTKeyCSignHash] = hex.EncodeToString(h)
	}
	if info.DeviceCount > 0 {
		txt[TXTKeyDeviceCount] = strconv.FormatUint(uint64(info.DeviceCount), 10)
	}

	return txt
}

// DecodeControllerTXT parses TXT records from controller discovery.
func DecodeControllerTXT(txt TXTRecordMap) (*ControllerInfo, error) {
	info := &ControllerInfo{}

	alStr, ok := txt[TXTKeyALMAC]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyALMAC)
	}
	al, err := frame.ParseMAC(alStr)
	if err != nil || al.IsZero() {
		return nil, fmt.Errorf("%w: AL MAC %q", ErrInvalidTXTRecord, alStr)
	}
	info.ALMAC = al

	vStr, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	v, err := strconv.ParseUint(vStr, 10, 8)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, vStr)
	}
	info.Version = uint8(v)

	info.GroupID = txt[TXTKeyGroup]

	if cs, ok := txt[TXTKeyCSignHash]; ok {
		h, err := hex.DecodeString(cs)
		if err != nil || len(h) > CSignHashLen {
			return nil, fmt.Errorf("%w: C-sign hash %q", ErrInvalidTXTRecord, cs)
		}
		info.CSignHash = h
	}

	if nStr, ok := txt[TXTKeyDeviceCount]; ok {
		n, err := strconv.ParseUint(nStr, 10, 16)
		if err == nil {
			info.DeviceCount = uint16(n)
		}
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// InstanceName returns the controller instance name for an AL MAC.
func InstanceName(al frame.MAC) string {
	return InstancePrefix + strings.ToUpper(hex.EncodeToString(al[:]))
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
