package frame

import (
	"encoding/binary"
)

// tlvHeaderLen is the EasyMesh TLV header size (type + 2-byte length).
const tlvHeaderLen = 3

// Encap DPP TLV flags.
const (
	encapFlagMACPresent uint8 = 0x80
	encapFlagGASFrame   uint8 = 0x20
)

// Chirp Value TLV flags.
const (
	chirpFlagMACPresent uint8 = 0x80
	chirpFlagHashValid  uint8 = 0x40
)

// EncapDPP is a decoded 1905 Encap DPP TLV.
type EncapDPP struct {
	// EnrolleeMAC is the enrollee the frame is for or from (zero if absent).
	EnrolleeMAC MAC

	// HasEnrolleeMAC reports whether EnrolleeMAC was present on the wire.
	HasEnrolleeMAC bool

	// IsGAS reports whether Frame is a GAS frame rather than a DPP action frame.
	IsGAS bool

	// FrameType is the DPP frame type, or TypeGAS for GAS frames.
	FrameType Type

	// Frame is the encapsulated public action frame body.
	Frame []byte
}

// ChirpValue is a decoded DPP Chirp Value TLV.
type ChirpValue struct {
	EnrolleeMAC    MAC
	HasEnrolleeMAC bool

	// HashValid is false when the chirp withdraws a previously announced hash.
	HashValid bool

	Hash []byte
}

func parseTLVHeader(carrier string, data []byte, want uint8) ([]byte, error) {
	if len(data) < tlvHeaderLen {
		return nil, parseErr(carrier, KindTruncated, len(data), "TLV header")
	}
	if data[0] != want {
		return nil, parseErr(carrier, KindBadTLV, 0, "TLV type %#02x, want %#02x", data[0], want)
	}
	n := int(binary.BigEndian.Uint16(data[1:]))
	if len(data)-tlvHeaderLen != n {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen,
			"TLV length %d, have %d", n, len(data)-tlvHeaderLen)
	}
	return data[tlvHeaderLen:], nil
}

func appendTLVHeader(buf []byte, t uint8, n int) []byte {
	buf = append(buf, t)
	return binary.BigEndian.AppendUint16(buf, uint16(n))
}

// ParseEncapDPP decodes a complete 1905 Encap DPP TLV including its header.
// The encapsulated frame is validated against its carrier.
func ParseEncapDPP(data []byte) (*EncapDPP, error) {
	const carrier = "encap dpp tlv"

	v, err := parseTLVHeader(carrier, data, TLVTypeEncapDPP)
	if err != nil {
		return nil, err
	}
	if len(v) < 1 {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen, "flags")
	}

	e := &EncapDPP{}
	flags := v[0]
	off := 1
	e.IsGAS = flags&encapFlagGASFrame != 0
	if flags&encapFlagMACPresent != 0 {
		if len(v) < off+6 {
			return nil, parseErr(carrier, KindTruncated, tlvHeaderLen+off, "enrollee MAC")
		}
		copy(e.EnrolleeMAC[:], v[off:off+6])
		e.HasEnrolleeMAC = true
		off += 6
	}
	if len(v) < off+3 {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen+off, "frame type and length")
	}
	e.FrameType = Type(v[off])
	n := int(binary.BigEndian.Uint16(v[off+1:]))
	off += 3
	if len(v)-off != n {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen+off,
			"frame length %d, have %d", n, len(v)-off)
	}
	e.Frame = make([]byte, n)
	copy(e.Frame, v[off:])

	if e.IsGAS {
		if _, err := ParseGASFrame(e.Frame); err != nil {
			return nil, err
		}
	} else {
		af, err := ParseActionFrame(e.Frame)
		if err != nil {
			return nil, err
		}
		if af.Type != e.FrameType {
			return nil, parseErr(carrier, KindBadType, tlvHeaderLen+off-3,
				"frame type field %s does not match frame %s", e.FrameType, af.Type)
		}
	}

	return e, nil
}

// Encode serializes the TLV including its header.
func (e *EncapDPP) Encode() []byte {
	var flags uint8
	n := 1 + 3 + len(e.Frame)
	if e.HasEnrolleeMAC {
		flags |= encapFlagMACPresent
		n += 6
	}
	if e.IsGAS {
		flags |= encapFlagGASFrame
	}

	buf := make([]byte, 0, tlvHeaderLen+n)
	buf = appendTLVHeader(buf, TLVTypeEncapDPP, n)
	buf = append(buf, flags)
	if e.HasEnrolleeMAC {
		buf = append(buf, e.EnrolleeMAC[:]...)
	}
	buf = append(buf, byte(e.FrameType))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(e.Frame)))
	return append(buf, e.Frame...)
}

// EncapAction wraps a DPP action frame for the given enrollee.
func EncapAction(enrollee MAC, f *ActionFrame) *EncapDPP {
	return &EncapDPP{
		EnrolleeMAC:    enrollee,
		HasEnrolleeMAC: !enrollee.IsZero(),
		FrameType:      f.Type,
		Frame:          f.Encode(),
	}
}

// EncapGAS wraps a GAS frame for the given enrollee.
func EncapGAS(enrollee MAC, g *GASFrame) *EncapDPP {
	return &EncapDPP{
		EnrolleeMAC:    enrollee,
		HasEnrolleeMAC: !enrollee.IsZero(),
		IsGAS:          true,
		FrameType:      TypeGAS,
		Frame:          g.Encode(),
	}
}

// ParseChirpValue decodes a complete DPP Chirp Value TLV including its header.
func ParseChirpValue(data []byte) (*ChirpValue, error) {
	const carrier = "chirp value tlv"

	v, err := parseTLVHeader(carrier, data, TLVTypeChirpValue)
	if err != nil {
		return nil, err
	}
	if len(v) < 1 {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen, "flags")
	}

	c := &ChirpValue{}
	flags := v[0]
	off := 1
	c.HashValid = flags&chirpFlagHashValid != 0
	if flags&chirpFlagMACPresent != 0 {
		if len(v) < off+6 {
			return nil, parseErr(carrier, KindTruncated, tlvHeaderLen+off, "enrollee MAC")
		}
		copy(c.EnrolleeMAC[:], v[off:off+6])
		c.HasEnrolleeMAC = true
		off += 6
	}
	if len(v) < off+1 {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen+off, "hash length")
	}
	n := int(v[off])
	off++
	if len(v)-off != n {
		return nil, parseErr(carrier, KindTruncated, tlvHeaderLen+off,
			"hash length %d, have %d", n, len(v)-off)
	}
	if n == 0 {
		return nil, parseErr(carrier, KindBadTLV, tlvHeaderLen+off, "empty hash")
	}
	c.Hash = make([]byte, n)
	copy(c.Hash, v[off:])

	return c, nil
}

// Encode serializes the TLV including its header.
func (c *ChirpValue) Encode() []byte {
	var flags uint8
	n := 1 + 1 + len(c.Hash)
	if c.HasEnrolleeMAC {
		flags |= chirpFlagMACPresent
		n += 6
	}
	if c.HashValid {
		flags |= chirpFlagHashValid
	}

	buf := make([]byte, 0, tlvHeaderLen+n)
	buf = appendTLVHeader(buf, TLVTypeChirpValue, n)
	buf = append(buf, flags)
	if c.HasEnrolleeMAC {
		buf = append(buf, c.EnrolleeMAC[:]...)
	}
	buf = append(buf, byte(len(c.Hash)))
	return append(buf, c.Hash...)
}
