package easyconnect

import (
	"bytes"
	"crypto/ecdh"
	"fmt"

	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// protocolVersion is advertised in Protocol Version attributes.
const protocolVersion = 2

// Associated data binding wrapped attributes to the frame carrying them.
var (
	adConfigRequest  = []byte{byte(frame.TypeGAS), byte(frame.GASInitialRequest)}
	adConfigResponse = []byte{byte(frame.TypeGAS), byte(frame.GASInitialResponse)}
)

func adFor(t frame.Type) []byte {
	return []byte{byte(t)}
}

func attr(attrs frame.Attributes, id frame.AttributeID) ([]byte, error) {
	v, ok := attrs.Get(id)
	if !ok || len(v) == 0 {
		return nil, fmt.Errorf("%w: %s", dppcrypto.ErrMissingAttribute, id)
	}
	return v, nil
}

func attrByte(attrs frame.Attributes, id frame.AttributeID) (uint8, error) {
	v, err := attr(attrs, id)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// openWrapped decrypts the Wrapped Data attribute of attrs.
func openWrapped(key *dppcrypto.SessionKey, ad []byte, attrs frame.Attributes) (frame.Attributes, error) {
	if key == nil {
		return nil, dppcrypto.ErrBadState
	}
	w, err := attr(attrs, frame.AttrWrappedData)
	if err != nil {
		return nil, err
	}
	return key.Open(ad, w)
}

// checkNonce compares a nonce attribute with the expected value.
func checkNonce(attrs frame.Attributes, id frame.AttributeID, want []byte) error {
	got, err := attr(attrs, id)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: %s mismatch", dppcrypto.ErrAuthFailure, id)
	}
	return nil
}

func sameKey(a, b *ecdh.PublicKey) bool {
	return a != nil && b != nil && a.Equal(b)
}
