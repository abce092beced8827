// Package bootstrap handles DPP bootstrapping information: the out-of-band
// public key, channel list and MAC hint a device publishes as a DPP URI.
package bootstrap

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/meshonboard/ec-go/pkg/frame"
)

// Version is the DPP protocol version advertised in generated URIs.
const Version = 2

// HashLen is the size of bootstrapping key and chirp hashes.
const HashLen = sha256.Size

// Bootstrapping errors.
var (
	ErrInvalidPrefix  = errors.New("bootstrap: missing DPP: prefix")
	ErrMalformed      = errors.New("bootstrap: malformed URI")
	ErrMissingKey     = errors.New("bootstrap: missing public key")
	ErrInvalidKey     = errors.New("bootstrap: invalid public key")
	ErrInvalidChannel = errors.New("bootstrap: invalid channel list")
	ErrInvalidMAC     = errors.New("bootstrap: invalid MAC address")
	ErrInvalidVersion = errors.New("bootstrap: invalid version")
	ErrNoPrivateKey   = errors.New("bootstrap: no private key")
)

// Channel is a global operating class and channel number pair.
type Channel struct {
	OpClass uint8
	Number  uint8
}

// String returns the class/channel form used in URIs.
func (c Channel) String() string {
	return fmt.Sprintf("%d/%d", c.OpClass, c.Number)
}

// Data is a peer's bootstrapping information.
type Data struct {
	// PublicKey is the P-256 bootstrapping public key.
	PublicKey *ecdh.PublicKey

	// PrivateKey is set only for the local node's own bootstrapping key.
	PrivateKey *ecdh.PrivateKey

	Channels []Channel

	MAC    frame.MAC
	HasMAC bool

	Version uint8
	Info    string

	der []byte
}

// New builds bootstrapping data around a public key.
func New(pub *ecdh.PublicKey) (*Data, error) {
	if pub == nil || pub.Curve() != ecdh.P256() {
		return nil, ErrInvalidKey
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Data{PublicKey: pub, Version: Version, der: der}, nil
}

// FromDER parses a SubjectPublicKeyInfo encoded P-256 key.
func FromDER(der []byte) (*Data, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ek, ok := k.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	pub, err := ek.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return New(pub)
}

// Generate creates bootstrapping data with a fresh key pair.
func Generate() (*Data, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey builds bootstrapping data for a local key pair.
func FromPrivateKey(priv *ecdh.PrivateKey) (*Data, error) {
	d, err := New(priv.PublicKey())
	if err != nil {
		return nil, err
	}
	d.PrivateKey = priv
	return d, nil
}

// DER returns the SubjectPublicKeyInfo encoding of the public key.
func (d *Data) DER() []byte {
	if d.der == nil && d.PublicKey != nil {
		d.der, _ = x509.MarshalPKIXPublicKey(d.PublicKey)
	}
	return d.der
}

// KeyHash returns SHA-256 over the DER encoded public key.
func (d *Data) KeyHash() []byte {
	h := sha256.Sum256(d.DER())
	return h[:]
}

// ChirpHash returns SHA-256("chirp" || DER), the value carried in presence
// announcements and chirp TLVs.
func (d *Data) ChirpHash() []byte {
	return ChirpHashOf(d.DER())
}

// ChirpHashOf computes the chirp hash for a DER encoded public key.
func ChirpHashOf(der []byte) []byte {
	h := sha256.New()
	h.Write([]byte("chirp"))
	h.Write(der)
	return h.Sum(nil)
}

// PeerID returns a stable identifier for the peer owning this key.
func (d *Data) PeerID() string {
	return hex.EncodeToString(d.KeyHash())
}

// Public returns a copy without the private key.
func (d *Data) Public() *Data {
	c := *d
	c.PrivateKey = nil
	c.Channels = append([]Channel(nil), d.Channels...)
	return &c
}

// LoadKeyFile reads a PEM encoded PKCS#8 P-256 private key.
func LoadKeyFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in %s", ErrInvalidKey, path)
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ek, ok := k.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	priv, err := ek.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return FromPrivateKey(priv)
}

// SaveKeyFile writes the private key as PEM encoded PKCS#8.
func (d *Data) SaveKeyFile(path string) error {
	if d.PrivateKey == nil {
		return ErrNoPrivateKey
	}
	der, err := x509.MarshalPKCS8PrivateKey(d.PrivateKey)
	if err != nil {
		return err
	}
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600)
}
