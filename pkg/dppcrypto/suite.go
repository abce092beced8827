// Package dppcrypto provides the cryptographic exchanges used by DPP
// onboarding: the bootstrapping-key authenticated handshake, wrapped data
// protection, reconfiguration keys, and signed Connectors.
package dppcrypto

import (
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// Handshake errors.
var (
	ErrInvalidKey       = errors.New("dppcrypto: invalid key")
	ErrMissingAttribute = errors.New("dppcrypto: missing attribute")
	ErrNotForUs         = errors.New("dppcrypto: bootstrap hash does not match")
	ErrUnwrap           = errors.New("dppcrypto: wrapped data failed to decrypt")
	ErrAuthFailure      = errors.New("dppcrypto: authentication tag mismatch")
	ErrPeerStatus       = errors.New("dppcrypto: peer reported failure")
	ErrBadState         = errors.New("dppcrypto: handshake step out of order")
)

// Capability bits carried in the I/R capabilities attributes.
const (
	CapEnrollee     byte = 0x01
	CapConfigurator byte = 0x02
)

// Suite is the cryptographic capability the onboarding engine invokes.
type Suite interface {
	// Initiate starts an authentication as initiator toward the responder
	// owning peer.
	Initiate(peer *bootstrap.Data) (Initiator, error)

	// Respond prepares to answer an authentication for the local
	// bootstrapping key own, which must include its private key.
	Respond(own *bootstrap.Data) (Responder, error)

	// Reconfigure derives the key protecting a reconfiguration exchange
	// between two Connector holders.
	Reconfigure(own *ecdh.PrivateKey, peer *ecdh.PublicKey, cNonce, eNonce []byte) (*SessionKey, error)

	// IntroductionKey derives the pairwise master key from network
	// introduction.
	IntroductionKey(own *ecdh.PrivateKey, peer *ecdh.PublicKey) ([]byte, error)
}

// Initiator is the configurator side of an authentication.
type Initiator interface {
	// Request returns the Authentication Request attributes.
	Request() (frame.Attributes, error)

	// Confirm verifies the Authentication Response and returns the
	// Authentication Confirm attributes and the session key.
	Confirm(response frame.Attributes) (frame.Attributes, *SessionKey, error)
}

// Responder is the enrollee side of an authentication.
type Responder interface {
	// Respond verifies the Authentication Request and returns the
	// Authentication Response attributes.
	Respond(request frame.Attributes) (frame.Attributes, error)

	// Finish verifies the Authentication Confirm and returns the session key.
	Finish(confirm frame.Attributes) (*SessionKey, error)
}

// P256Suite implements Suite with ECDH P-256, HKDF-SHA256, HMAC-SHA256
// tags and XChaCha20-Poly1305 wrapped data.
type P256Suite struct{}

// DefaultSuite returns the P-256 suite.
func DefaultSuite() Suite {
	return P256Suite{}
}

// Initiate implements Suite.
func (P256Suite) Initiate(peer *bootstrap.Data) (Initiator, error) {
	if peer == nil || peer.PublicKey == nil {
		return nil, ErrInvalidKey
	}
	return &p256Initiator{peer: peer}, nil
}

// Respond implements Suite.
func (P256Suite) Respond(own *bootstrap.Data) (Responder, error) {
	if own == nil || own.PrivateKey == nil {
		return nil, ErrInvalidKey
	}
	return &p256Responder{own: own}, nil
}

// Reconfigure implements Suite.
func (P256Suite) Reconfigure(own *ecdh.PrivateKey, peer *ecdh.PublicKey, cNonce, eNonce []byte) (*SessionKey, error) {
	z, err := own.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	salt := append(append([]byte{}, cNonce...), eNonce...)
	return newSessionKey(deriveKey(z, salt, "DPP reconfig key")), nil
}

// IntroductionKey implements Suite.
func (P256Suite) IntroductionKey(own *ecdh.PrivateKey, peer *ecdh.PublicKey) ([]byte, error) {
	z, err := own.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return deriveKey(z, nil, "DPP PMK"), nil
}

type p256Initiator struct {
	peer   *bootstrap.Data
	proto  *ecdh.PrivateKey
	iNonce []byte
	m      []byte
}

func (i *p256Initiator) Request() (frame.Attributes, error) {
	if i.proto != nil {
		return nil, ErrBadState
	}
	proto, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	m, err := proto.ECDH(i.peer.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	k1 := deriveKey(m, nil, "first intermediate key")

	var inner frame.Attributes
	inner = inner.Add(frame.AttrInitiatorNonce, nonce)
	inner = inner.Add(frame.AttrInitiatorCapabilities, []byte{CapConfigurator})
	wrapped, err := seal(k1, adFor(frame.TypeAuthRequest), inner)
	if err != nil {
		return nil, err
	}

	i.proto, i.iNonce, i.m = proto, nonce, m

	var attrs frame.Attributes
	attrs = attrs.Add(frame.AttrResponderBootstrapHash, i.peer.KeyHash())
	attrs = attrs.Add(frame.AttrInitiatorProtocolKey, EncodePoint(proto.PublicKey()))
	attrs = attrs.Add(frame.AttrProtocolVersion, []byte{bootstrap.Version})
	attrs = attrs.Add(frame.AttrWrappedData, wrapped)
	return attrs, nil
}

func (i *p256Initiator) Confirm(resp frame.Attributes) (frame.Attributes, *SessionKey, error) {
	if i.proto == nil {
		return nil, nil, ErrBadState
	}
	if err := checkStatus(resp); err != nil {
		return nil, nil, err
	}
	if err := checkHash(resp, i.peer.KeyHash()); err != nil {
		return nil, nil, err
	}
	pr, err := needPoint(resp, frame.AttrResponderProtocolKey)
	if err != nil {
		return nil, nil, err
	}
	n, err := i.proto.ECDH(pr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	wrapped, err := needAttr(resp, frame.AttrWrappedData)
	if err != nil {
		return nil, nil, err
	}
	inner, err := open(deriveKey(n, nil, "second intermediate key"), adFor(frame.TypeAuthResponse), wrapped)
	if err != nil {
		return nil, nil, err
	}
	rNonce, err := needAttr(inner, frame.AttrResponderNonce)
	if err != nil {
		return nil, nil, err
	}
	echoed, err := needAttr(inner, frame.AttrInitiatorNonce)
	if err != nil {
		return nil, nil, err
	}
	rTag, err := needAttr(inner, frame.AttrResponderAuthTag)
	if err != nil {
		return nil, nil, err
	}
	if !hmac.Equal(echoed, i.iNonce) {
		return nil, nil, ErrAuthFailure
	}

	ke := sessionKey(i.m, n, i.iNonce, rNonce)
	pi, br := EncodePoint(i.proto.PublicKey()), i.peer.DER()
	prb := EncodePoint(pr)
	if !hmac.Equal(rTag, authTag(ke, i.iNonce, rNonce, pi, prb, br, []byte{0})) {
		return nil, nil, ErrAuthFailure
	}

	iTag := authTag(ke, rNonce, i.iNonce, prb, pi, br, []byte{1})
	confirmInner := frame.Attributes{}.Add(frame.AttrInitiatorAuthTag, iTag)
	wrappedConfirm, err := seal(ke, adFor(frame.TypeAuthConfirm), confirmInner)
	if err != nil {
		return nil, nil, err
	}

	var attrs frame.Attributes
	attrs = attrs.AddStatus(frame.StatusOK)
	attrs = attrs.Add(frame.AttrResponderBootstrapHash, i.peer.KeyHash())
	attrs = attrs.Add(frame.AttrWrappedData, wrappedConfirm)
	return attrs, newSessionKey(ke), nil
}

type p256Responder struct {
	own    *bootstrap.Data
	pi     []byte
	pr     []byte
	iNonce []byte
	rNonce []byte
	ke     []byte
}

func (r *p256Responder) Respond(req frame.Attributes) (frame.Attributes, error) {
	if r.ke != nil {
		return nil, ErrBadState
	}
	if err := checkHash(req, r.own.KeyHash()); err != nil {
		return nil, err
	}
	pi, err := needPoint(req, frame.AttrInitiatorProtocolKey)
	if err != nil {
		return nil, err
	}
	m, err := r.own.PrivateKey.ECDH(pi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	wrapped, err := needAttr(req, frame.AttrWrappedData)
	if err != nil {
		return nil, err
	}
	inner, err := open(deriveKey(m, nil, "first intermediate key"), adFor(frame.TypeAuthRequest), wrapped)
	if err != nil {
		return nil, err
	}
	iNonce, err := needAttr(inner, frame.AttrInitiatorNonce)
	if err != nil {
		return nil, err
	}

	proto, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	rNonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	n, err := proto.ECDH(pi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	ke := sessionKey(m, n, iNonce, rNonce)
	pib, prb, br := EncodePoint(pi), EncodePoint(proto.PublicKey()), r.own.DER()
	rTag := authTag(ke, iNonce, rNonce, pib, prb, br, []byte{0})

	var respInner frame.Attributes
	respInner = respInner.Add(frame.AttrResponderNonce, rNonce)
	respInner = respInner.Add(frame.AttrInitiatorNonce, iNonce)
	respInner = respInner.Add(frame.AttrResponderCapabilities, []byte{CapEnrollee})
	respInner = respInner.Add(frame.AttrResponderAuthTag, rTag)
	wrappedResp, err := seal(deriveKey(n, nil, "second intermediate key"), adFor(frame.TypeAuthResponse), respInner)
	if err != nil {
		return nil, err
	}

	r.pi, r.pr, r.iNonce, r.rNonce, r.ke = pib, prb, iNonce, rNonce, ke

	var attrs frame.Attributes
	attrs = attrs.AddStatus(frame.StatusOK)
	attrs = attrs.Add(frame.AttrResponderBootstrapHash, r.own.KeyHash())
	attrs = attrs.Add(frame.AttrResponderProtocolKey, prb)
	attrs = attrs.Add(frame.AttrWrappedData, wrappedResp)
	return attrs, nil
}

func (r *p256Responder) Finish(confirm frame.Attributes) (*SessionKey, error) {
	if r.ke == nil {
		return nil, ErrBadState
	}
	if err := checkStatus(confirm); err != nil {
		return nil, err
	}
	if err := checkHash(confirm, r.own.KeyHash()); err != nil {
		return nil, err
	}
	wrapped, err := needAttr(confirm, frame.AttrWrappedData)
	if err != nil {
		return nil, err
	}
	inner, err := open(r.ke, adFor(frame.TypeAuthConfirm), wrapped)
	if err != nil {
		return nil, err
	}
	iTag, err := needAttr(inner, frame.AttrInitiatorAuthTag)
	if err != nil {
		return nil, err
	}
	want := authTag(r.ke, r.rNonce, r.iNonce, r.pr, r.pi, r.own.DER(), []byte{1})
	if !hmac.Equal(iTag, want) {
		return nil, ErrAuthFailure
	}
	return newSessionKey(r.ke), nil
}

func sessionKey(m, n, iNonce, rNonce []byte) []byte {
	ikm := append(append([]byte{}, m...), n...)
	salt := append(append([]byte{}, iNonce...), rNonce...)
	return deriveKey(ikm, salt, "DPP Key")
}

func adFor(t frame.Type) []byte {
	return []byte{byte(t)}
}

func needAttr(attrs frame.Attributes, id frame.AttributeID) ([]byte, error) {
	v, ok := attrs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingAttribute, id)
	}
	return v, nil
}

func needPoint(attrs frame.Attributes, id frame.AttributeID) (*ecdh.PublicKey, error) {
	v, err := needAttr(attrs, id)
	if err != nil {
		return nil, err
	}
	return DecodePoint(v)
}

func checkHash(attrs frame.Attributes, want []byte) error {
	got, err := needAttr(attrs, frame.AttrResponderBootstrapHash)
	if err != nil {
		return err
	}
	if !hmac.Equal(got, want) {
		return ErrNotForUs
	}
	return nil
}

func checkStatus(attrs frame.Attributes) error {
	s, ok := attrs.Status()
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingAttribute, frame.AttrStatus)
	}
	if s != frame.StatusOK {
		return fmt.Errorf("%w: %s", ErrPeerStatus, s)
	}
	return nil
}
