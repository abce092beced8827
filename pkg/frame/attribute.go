package frame

import (
	"encoding/binary"
)

// attrHeaderLen is the size of an attribute identifier plus length.
const attrHeaderLen = 4

// Attribute is a single DPP attribute.
type Attribute struct {
	ID    AttributeID
	Value []byte
}

// Attributes is an ordered list of DPP attributes.
type Attributes []Attribute

// Get returns the value of the first attribute with the given ID.
func (a Attributes) Get(id AttributeID) ([]byte, bool) {
	for _, attr := range a {
		if attr.ID == id {
			return attr.Value, true
		}
	}
	return nil, false
}

// Has reports whether an attribute with the given ID is present.
func (a Attributes) Has(id AttributeID) bool {
	_, ok := a.Get(id)
	return ok
}

// Status returns the value of the status attribute.
func (a Attributes) Status() (Status, bool) {
	v, ok := a.Get(AttrStatus)
	if !ok || len(v) != 1 {
		return 0, false
	}
	return Status(v[0]), true
}

// Add appends an attribute and returns the extended list.
func (a Attributes) Add(id AttributeID, value []byte) Attributes {
	v := make([]byte, len(value))
	copy(v, value)
	return append(a, Attribute{ID: id, Value: v})
}

// AddStatus appends a status attribute.
func (a Attributes) AddStatus(s Status) Attributes {
	return a.Add(AttrStatus, []byte{byte(s)})
}

// Len returns the encoded size of the attribute list.
func (a Attributes) Len() int {
	n := 0
	for _, attr := range a {
		n += attrHeaderLen + len(attr.Value)
	}
	return n
}

// Encode serializes the attributes in list order.
func (a Attributes) Encode() []byte {
	buf := make([]byte, 0, a.Len())
	for _, attr := range a {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(attr.ID))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(attr.Value)))
		buf = append(buf, attr.Value...)
	}
	return buf
}

// ParseAttributes decodes a DPP attribute list. The whole buffer must be
// consumed by well-formed attributes.
func ParseAttributes(data []byte) (Attributes, error) {
	return parseAttributes("attributes", data, 0)
}

func parseAttributes(carrier string, data []byte, base int) (Attributes, error) {
	var attrs Attributes
	off := 0
	for off < len(data) {
		if len(data)-off < attrHeaderLen {
			return nil, parseErr(carrier, KindBadAttribute, base+off,
				"%d trailing bytes", len(data)-off)
		}
		id := AttributeID(binary.LittleEndian.Uint16(data[off:]))
		n := int(binary.LittleEndian.Uint16(data[off+2:]))
		off += attrHeaderLen
		if len(data)-off < n {
			return nil, parseErr(carrier, KindBadAttribute, base+off,
				"attribute %#04x length %d exceeds remaining %d", uint16(id), n, len(data)-off)
		}
		v := make([]byte, n)
		copy(v, data[off:off+n])
		attrs = append(attrs, Attribute{ID: id, Value: v})
		off += n
	}
	return attrs, nil
}
