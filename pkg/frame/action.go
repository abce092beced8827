package frame

// ActionHeaderLen is the size of the DPP public action frame header
// (category, action, OUI, OUI type, crypto suite, frame type).
const ActionHeaderLen = 8

// ActionFrame is a decoded DPP vendor-specific public action frame.
type ActionFrame struct {
	Type       Type
	Attributes Attributes
}

// ParseActionFrame decodes a DPP public action frame body.
func ParseActionFrame(data []byte) (*ActionFrame, error) {
	const carrier = "action frame"

	if len(data) < ActionHeaderLen {
		return nil, parseErr(carrier, KindTruncated, len(data),
			"need %d header bytes, have %d", ActionHeaderLen, len(data))
	}
	if data[0] != CategoryPublic || data[1] != ActionVendorSpecific {
		return nil, parseErr(carrier, KindBadCategory, 0,
			"category %#02x action %#02x", data[0], data[1])
	}
	if data[2] != WFAOUI[0] || data[3] != WFAOUI[1] || data[4] != WFAOUI[2] || data[5] != OUITypeDPP {
		return nil, parseErr(carrier, KindBadOUI, 2, "% x", data[2:6])
	}
	if data[6] != CryptoSuiteDPP {
		return nil, parseErr(carrier, KindBadType, 6, "crypto suite %d", data[6])
	}

	t := Type(data[7])
	if !t.Supported() {
		return nil, parseErr(carrier, KindBadType, 7, "frame type %d (%s)", data[7], t)
	}

	attrs, err := parseAttributes(carrier, data[ActionHeaderLen:], ActionHeaderLen)
	if err != nil {
		return nil, err
	}

	return &ActionFrame{Type: t, Attributes: attrs}, nil
}

// Encode serializes the action frame body.
func (f *ActionFrame) Encode() []byte {
	buf := make([]byte, 0, ActionHeaderLen+f.Attributes.Len())
	buf = append(buf,
		CategoryPublic, ActionVendorSpecific,
		WFAOUI[0], WFAOUI[1], WFAOUI[2], OUITypeDPP,
		CryptoSuiteDPP, byte(f.Type))
	return append(buf, f.Attributes.Encode()...)
}

// NewActionFrame builds an action frame of the given type.
func NewActionFrame(t Type, attrs Attributes) *ActionFrame {
	return &ActionFrame{Type: t, Attributes: attrs}
}

// PeekCarrier reports whether data looks like a GAS frame (true) or a DPP
// vendor action frame (false). It only inspects the first two bytes and
// returns an error if neither carrier matches.
func PeekCarrier(data []byte) (isGAS bool, err error) {
	if len(data) < 2 {
		return false, parseErr("frame", KindTruncated, len(data), "need 2 bytes")
	}
	if data[0] != CategoryPublic {
		return false, parseErr("frame", KindBadCategory, 0, "category %#02x", data[0])
	}
	switch data[1] {
	case ActionVendorSpecific:
		return false, nil
	case byte(GASInitialRequest), byte(GASInitialResponse),
		byte(GASComebackRequest), byte(GASComebackResponse):
		return true, nil
	default:
		return false, parseErr("frame", KindBadCategory, 1, "action %#02x", data[1])
	}
}
