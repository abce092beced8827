package frame

import (
	"errors"
	"fmt"
)

// Parse error sentinels. A *ParseError matches the sentinel for its Kind.
var (
	ErrTruncated    = errors.New("frame truncated")
	ErrBadCategory  = errors.New("unexpected action category")
	ErrBadOUI       = errors.New("unexpected vendor OUI or OUI type")
	ErrBadType      = errors.New("unsupported message type")
	ErrBadAttribute = errors.New("malformed attribute")
	ErrBadTLV       = errors.New("malformed TLV")
)

// ErrorKind classifies a parse failure.
type ErrorKind uint8

const (
	KindTruncated ErrorKind = iota
	KindBadCategory
	KindBadOUI
	KindBadType
	KindBadAttribute
	KindBadTLV
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTruncated:
		return "TRUNCATED"
	case KindBadCategory:
		return "BAD_CATEGORY"
	case KindBadOUI:
		return "BAD_OUI"
	case KindBadType:
		return "BAD_TYPE"
	case KindBadAttribute:
		return "BAD_ATTRIBUTE"
	case KindBadTLV:
		return "BAD_TLV"
	default:
		return "UNKNOWN"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTruncated:
		return ErrTruncated
	case KindBadCategory:
		return ErrBadCategory
	case KindBadOUI:
		return ErrBadOUI
	case KindBadType:
		return ErrBadType
	case KindBadAttribute:
		return ErrBadAttribute
	default:
		return ErrBadTLV
	}
}

// ParseError describes why a carrier could not be decoded.
type ParseError struct {
	Kind    ErrorKind
	Carrier string
	Offset  int
	Detail  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v at offset %d", e.Carrier, e.Kind.sentinel(), e.Offset)
	}
	return fmt.Sprintf("%s: %v at offset %d: %s", e.Carrier, e.Kind.sentinel(), e.Offset, e.Detail)
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ParseError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func parseErr(carrier string, kind ErrorKind, offset int, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:    kind,
		Carrier: carrier,
		Offset:  offset,
		Detail:  fmt.Sprintf(format, args...),
	}
}
