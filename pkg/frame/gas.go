package frame

import (
	"encoding/binary"
)

// advProtoLen is the size of the DPP advertisement protocol element.
const advProtoLen = 10

// GASFrame is a decoded GAS public action frame carrying DPP configuration.
type GASFrame struct {
	Action      GASAction
	DialogToken uint8

	// StatusCode is the 802.11 status code (responses only).
	StatusCode uint16

	// ComebackDelay is in TUs (responses only).
	ComebackDelay uint16

	// FragmentID is the fragment number and more-fragments bit (comeback response only).
	FragmentID uint8

	// Query holds the query request or query response payload.
	Query []byte
}

// Attributes decodes the query payload as DPP attributes.
func (g *GASFrame) Attributes() (Attributes, error) {
	return parseAttributes("gas query", g.Query, 0)
}

// ParseGASFrame decodes a GAS public action frame body.
func ParseGASFrame(data []byte) (*GASFrame, error) {
	const carrier = "gas frame"

	if len(data) < 3 {
		return nil, parseErr(carrier, KindTruncated, len(data), "need 3 header bytes")
	}
	if data[0] != CategoryPublic {
		return nil, parseErr(carrier, KindBadCategory, 0, "category %#02x", data[0])
	}

	g := &GASFrame{Action: GASAction(data[1]), DialogToken: data[2]}
	off := 3

	switch g.Action {
	case GASComebackRequest:
		if len(data) != off {
			return nil, parseErr(carrier, KindBadTLV, off, "%d trailing bytes", len(data)-off)
		}
		return g, nil

	case GASInitialRequest:
		// no fixed fields before the advertisement protocol element

	case GASInitialResponse:
		if len(data) < off+4 {
			return nil, parseErr(carrier, KindTruncated, len(data), "status and comeback delay")
		}
		g.StatusCode = binary.LittleEndian.Uint16(data[off:])
		g.ComebackDelay = binary.LittleEndian.Uint16(data[off+2:])
		off += 4

	case GASComebackResponse:
		if len(data) < off+5 {
			return nil, parseErr(carrier, KindTruncated, len(data), "status, fragment and comeback delay")
		}
		g.StatusCode = binary.LittleEndian.Uint16(data[off:])
		g.FragmentID = data[off+2]
		g.ComebackDelay = binary.LittleEndian.Uint16(data[off+3:])
		off += 5

	default:
		return nil, parseErr(carrier, KindBadCategory, 1, "action %#02x", data[1])
	}

	if err := checkAdvProto(carrier, data, off); err != nil {
		return nil, err
	}
	off += advProtoLen

	if len(data) < off+2 {
		return nil, parseErr(carrier, KindTruncated, len(data), "query length")
	}
	n := int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	if len(data)-off != n {
		return nil, parseErr(carrier, KindTruncated, off,
			"query length %d, have %d", n, len(data)-off)
	}
	g.Query = make([]byte, n)
	copy(g.Query, data[off:])

	return g, nil
}

func checkAdvProto(carrier string, data []byte, off int) error {
	if len(data) < off+advProtoLen {
		return parseErr(carrier, KindTruncated, len(data), "advertisement protocol element")
	}
	e := data[off : off+advProtoLen]
	if e[0] != ElementIDAdvertisementProtocol || e[1] != advProtoLen-2 {
		return parseErr(carrier, KindBadTLV, off, "advertisement protocol element % x", e[:2])
	}
	// e[2] is the query response info field.
	if e[3] != ElementIDVendor || e[4] != 5 {
		return parseErr(carrier, KindBadOUI, off+3, "advertisement protocol id %#02x", e[3])
	}
	if e[5] != WFAOUI[0] || e[6] != WFAOUI[1] || e[7] != WFAOUI[2] || e[8] != OUITypeDPP || e[9] != DPPConfigProtocol {
		return parseErr(carrier, KindBadOUI, off+5, "% x", e[5:])
	}
	return nil
}

func appendAdvProto(buf []byte) []byte {
	return append(buf,
		ElementIDAdvertisementProtocol, advProtoLen-2,
		0x7F, // query response info: max length, no PAME-BI
		ElementIDVendor, 5,
		WFAOUI[0], WFAOUI[1], WFAOUI[2], OUITypeDPP, DPPConfigProtocol)
}

// Encode serializes the GAS frame body.
func (g *GASFrame) Encode() []byte {
	buf := make([]byte, 0, 3+5+advProtoLen+2+len(g.Query))
	buf = append(buf, CategoryPublic, byte(g.Action), g.DialogToken)

	switch g.Action {
	case GASComebackRequest:
		return buf
	case GASInitialResponse:
		buf = binary.LittleEndian.AppendUint16(buf, g.StatusCode)
		buf = binary.LittleEndian.AppendUint16(buf, g.ComebackDelay)
	case GASComebackResponse:
		buf = binary.LittleEndian.AppendUint16(buf, g.StatusCode)
		buf = append(buf, g.FragmentID)
		buf = binary.LittleEndian.AppendUint16(buf, g.ComebackDelay)
	}

	buf = appendAdvProto(buf)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(g.Query)))
	return append(buf, g.Query...)
}

// NewConfigRequest builds a GAS initial request carrying DPP attributes.
func NewConfigRequest(dialogToken uint8, attrs Attributes) *GASFrame {
	return &GASFrame{
		Action:      GASInitialRequest,
		DialogToken: dialogToken,
		Query:       attrs.Encode(),
	}
}

// NewConfigResponse builds a GAS initial response carrying DPP attributes.
func NewConfigResponse(dialogToken uint8, attrs Attributes) *GASFrame {
	return &GASFrame{
		Action:      GASInitialResponse,
		DialogToken: dialogToken,
		Query:       attrs.Encode(),
	}
}
