package dppcrypto

import (
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/meshonboard/ec-go/pkg/frame"
)

const (
	// KeySize is the size of derived keys in bytes.
	KeySize = 32

	// NonceSize is the size of protocol nonces in bytes.
	NonceSize = 16

	// TagSize is the size of authentication tags in bytes.
	TagSize = sha256.Size
)

// SessionKey protects wrapped data once a handshake has completed.
type SessionKey struct {
	raw []byte
}

func newSessionKey(raw []byte) *SessionKey {
	return &SessionKey{raw: raw}
}

// Seal encrypts attrs into a wrapped data value bound to ad.
func (k *SessionKey) Seal(ad []byte, attrs frame.Attributes) ([]byte, error) {
	return seal(k.raw, ad, attrs)
}

// Open decrypts a wrapped data value sealed with the same key and ad.
func (k *SessionKey) Open(ad, wrapped []byte) (frame.Attributes, error) {
	return open(k.raw, ad, wrapped)
}

// Fingerprint returns a short, non-secret identifier of the key.
func (k *SessionKey) Fingerprint() string {
	h := sha256.Sum256(k.raw)
	return hex.EncodeToString(h[:8])
}

func seal(key, ad []byte, attrs frame.Attributes) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, aead.NonceSize(), aead.NonceSize()+attrs.Len()+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out, attrs.Encode(), ad), nil
}

func open(key, ad, wrapped []byte) (frame.Attributes, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrUnwrap
	}
	n := aead.NonceSize()
	plain, err := aead.Open(nil, wrapped[:n], wrapped[n:], ad)
	if err != nil {
		return nil, ErrUnwrap
	}
	attrs, err := frame.ParseAttributes(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnwrap, err)
	}
	return attrs, nil
}

// deriveKey runs HKDF-SHA256 and returns KeySize bytes.
func deriveKey(ikm, salt []byte, info string) []byte {
	r := hkdf.New(sha256.New, ikm, salt, []byte(info))
	k := make([]byte, KeySize)
	if _, err := io.ReadFull(r, k); err != nil {
		// hkdf only fails past 255*HashLen bytes
		panic(err)
	}
	return k
}

func authTag(key []byte, parts ...[]byte) []byte {
	m := hmac.New(sha256.New, key)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

// NewNonce returns NonceSize random bytes.
func NewNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, err
	}
	return n, nil
}

// EncodePoint returns the x||y coordinates of a P-256 public key.
func EncodePoint(pub *ecdh.PublicKey) []byte {
	return pub.Bytes()[1:]
}

// DecodePoint parses x||y coordinates into a P-256 public key.
func DecodePoint(b []byte) (*ecdh.PublicKey, error) {
	if len(b) != 64 {
		return nil, ErrInvalidKey
	}
	pub, err := ecdh.P256().NewPublicKey(append([]byte{0x04}, b...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}
