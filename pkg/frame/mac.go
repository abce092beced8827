package frame

import (
	"fmt"
	"net"
)

// MAC is a 48-bit IEEE 802 address.
type MAC [6]byte

// ParseMAC parses a colon or dash separated MAC address.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("not an EUI-48 address: %s", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// String returns the lower-case colon separated form.
func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether the address is all zeros.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// IsBroadcast reports whether the address is the broadcast address.
func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}
