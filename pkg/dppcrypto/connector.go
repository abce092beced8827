package dppcrypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// ConnectorType is the JWS "typ" header of a DPP Connector.
const ConnectorType = "dppCon"

// Network roles carried in Connector groups.
const (
	NetRoleSTA          = "sta"
	NetRoleAP           = "ap"
	NetRoleMAPAgent     = "mapAgent"
	NetRoleMAPBackhaul  = "mapBackhaulSta"
	NetRoleConfigurator = "configurator"
)

// Connector errors.
var (
	ErrInvalidConnector = errors.New("dppcrypto: invalid connector")
	ErrNoCommonGroup    = errors.New("dppcrypto: connectors share no group")
)

// JWK is a P-256 public key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Kid string `json:"kid,omitempty"`
}

// JWKFromECDH encodes an ECDH P-256 public key.
func JWKFromECDH(pub *ecdh.PublicKey) JWK {
	b := pub.Bytes()
	return JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(b[1:33]),
		Y:   base64.RawURLEncoding.EncodeToString(b[33:65]),
	}
}

// JWKFromECDSA encodes an ECDSA P-256 public key.
func JWKFromECDSA(pub *ecdsa.PublicKey) JWK {
	k, err := pub.ECDH()
	if err != nil {
		return JWK{}
	}
	return JWKFromECDH(k)
}

func (j JWK) point() ([]byte, error) {
	if j.Kty != "EC" || j.Crv != "P-256" {
		return nil, ErrInvalidKey
	}
	x, err1 := base64.RawURLEncoding.DecodeString(j.X)
	y, err2 := base64.RawURLEncoding.DecodeString(j.Y)
	if err1 != nil || err2 != nil || len(x) != 32 || len(y) != 32 {
		return nil, ErrInvalidKey
	}
	return append(append([]byte{0x04}, x...), y...), nil
}

// ECDH decodes the key for key agreement.
func (j JWK) ECDH() (*ecdh.PublicKey, error) {
	p, err := j.point()
	if err != nil {
		return nil, err
	}
	pub, err := ecdh.P256().NewPublicKey(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// ECDSA decodes the key for signature verification.
func (j JWK) ECDSA() (*ecdsa.PublicKey, error) {
	// Validate the point before building the ecdsa key.
	if _, err := j.ECDH(); err != nil {
		return nil, err
	}
	p, _ := j.point()
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(p[1:33]),
		Y:     new(big.Int).SetBytes(p[33:65]),
	}, nil
}

// Group is a Connector group membership.
type Group struct {
	GroupID string `json:"groupId"`
	NetRole string `json:"netRole"`
}

// ConnectorClaims is the body of a signed Connector.
type ConnectorClaims struct {
	Groups       []Group `json:"groups"`
	NetAccessKey JWK     `json:"netAccessKey"`
	jwt.RegisteredClaims
}

// Role returns the net role of the first group.
func (c *ConnectorClaims) Role() string {
	if len(c.Groups) == 0 {
		return ""
	}
	return c.Groups[0].NetRole
}

// SharesGroup reports whether both Connectors are members of a common group.
func (c *ConnectorClaims) SharesGroup(other *ConnectorClaims) bool {
	for _, a := range c.Groups {
		for _, b := range other.Groups {
			if a.GroupID == b.GroupID || a.GroupID == "*" || b.GroupID == "*" {
				return true
			}
		}
	}
	return false
}

// IssueConnector signs claims with the C-sign key as an ES256 JWS.
func IssueConnector(csign *ecdsa.PrivateKey, claims *ConnectorClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["typ"] = ConnectorType
	token.Header["kid"] = KeyID(&csign.PublicKey)
	return token.SignedString(csign)
}

// VerifyConnector checks a Connector signature against the C-sign key and
// returns its claims.
func VerifyConnector(signed string, csign *ecdsa.PublicKey) (*ConnectorClaims, error) {
	token, err := jwt.ParseWithClaims(signed, &ConnectorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if typ, _ := t.Header["typ"].(string); typ != ConnectorType {
			return nil, fmt.Errorf("unexpected typ %q", typ)
		}
		return csign, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnector, err)
	}
	claims, ok := token.Claims.(*ConnectorClaims)
	if !ok {
		return nil, ErrInvalidConnector
	}
	if _, err := claims.NetAccessKey.ECDH(); err != nil {
		return nil, fmt.Errorf("%w: netAccessKey: %v", ErrInvalidConnector, err)
	}
	return claims, nil
}

// KeyID returns the base64url SHA-256 of the key's SubjectPublicKeyInfo.
func KeyID(pub *ecdsa.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(CSignKeyHash(pub))
}

// CSignKeyHash returns SHA-256 over the DER encoded C-sign public key.
func CSignKeyHash(pub *ecdsa.PublicKey) []byte {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil
	}
	h := sha256.Sum256(der)
	return h[:]
}

// Configurator is the signing identity of a configurator: its C-sign key,
// its own network access key and the Connector binding the two.
type Configurator struct {
	GroupID      string
	CSign        *ecdsa.PrivateKey
	NetAccessKey *ecdh.PrivateKey
	Connector    string
}

// NewConfigurator generates a fresh configurator identity for groupID.
func NewConfigurator(groupID string) (*Configurator, error) {
	csign, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	nak, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	c := &Configurator{GroupID: groupID, CSign: csign, NetAccessKey: nak}
	c.Connector, err = c.Issue(NetRoleConfigurator, nak.PublicKey())
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Issue signs a Connector for a peer with the given role and access key.
func (c *Configurator) Issue(netRole string, nak *ecdh.PublicKey) (string, error) {
	return IssueConnector(c.CSign, &ConnectorClaims{
		Groups:       []Group{{GroupID: c.GroupID, NetRole: netRole}},
		NetAccessKey: JWKFromECDH(nak),
	})
}

// CSignJWK returns the C-sign public key as a JWK.
func (c *Configurator) CSignJWK() JWK {
	j := JWKFromECDSA(&c.CSign.PublicKey)
	j.Kid = KeyID(&c.CSign.PublicKey)
	return j
}

// CSignKeyHash returns the hash identifying this configurator's C-sign key.
func (c *Configurator) CSignKeyHash() []byte {
	return CSignKeyHash(&c.CSign.PublicKey)
}
