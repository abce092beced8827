package easyconnect

import (
	"encoding/json"
	"fmt"

	"github.com/meshonboard/ec-go/pkg/dppcrypto"
)

// Wi-Fi technologies named in configuration objects.
const (
	WiFiTechInfra = "infra"
	WiFiTechMAP   = "map"
)

// ConfigRequest is the enrollee's DPP Configuration Request object.
type ConfigRequest struct {
	Name     string `json:"name"`
	WiFiTech string `json:"wi-fi_tech"`
	NetRole  string `json:"netRole"`

	// NetAccessKey is the key the enrollee wants bound into its Connector.
	NetAccessKey dppcrypto.JWK `json:"netAccessKey"`
}

// ConfigObject is a DPP Configuration Object.
type ConfigObject struct {
	WiFiTech  string     `json:"wi-fi_tech"`
	Discovery Discovery  `json:"discovery"`
	Cred      Credential `json:"cred"`
}

// Discovery identifies the network being joined.
type Discovery struct {
	SSID string `json:"ssid"`
}

// Credential holds the network credential.
type Credential struct {
	AKM             string         `json:"akm"`
	Pass            string         `json:"pass,omitempty"`
	SignedConnector string         `json:"signedConnector,omitempty"`
	CSign           *dppcrypto.JWK `json:"csign,omitempty"`
}

// Validate checks the fields every configuration must carry.
func (c *ConfigObject) Validate() error {
	if c.Discovery.SSID == "" {
		return fmt.Errorf("%w: empty ssid", ErrConfigRejected)
	}
	if c.Cred.AKM == "" {
		return fmt.Errorf("%w: empty akm", ErrConfigRejected)
	}
	if c.Cred.Pass == "" && c.Cred.SignedConnector == "" {
		return fmt.Errorf("%w: no credential", ErrConfigRejected)
	}
	return nil
}

func marshalObject(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalConfigObject(data []byte) (*ConfigObject, error) {
	var obj ConfigObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigRejected, err)
	}
	return &obj, nil
}

func unmarshalConfigRequest(data []byte) (*ConfigRequest, error) {
	var req ConfigRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: config request: %v", ErrConfigRejected, err)
	}
	return &req, nil
}

// PeerInfo describes the enrollee a configuration is being built for.
type PeerInfo struct {
	PeerID string
	MAC    string

	// Reconfiguring is set when the peer already holds a configuration.
	Reconfiguring bool
}

// ConfigSource produces the configuration a controller hands to an enrollee.
// The controller adds the Connector and C-sign key itself.
type ConfigSource interface {
	ConfigFor(peer PeerInfo, req *ConfigRequest) (*ConfigObject, error)
}

// ConfigApplier installs a configuration received by an enrollee. Returning
// an error rejects it and the previous configuration stays in effect.
type ConfigApplier interface {
	Apply(obj *ConfigObject) error
}

// ConfigSourceFunc adapts a function to ConfigSource.
type ConfigSourceFunc func(peer PeerInfo, req *ConfigRequest) (*ConfigObject, error)

// ConfigFor implements ConfigSource.
func (f ConfigSourceFunc) ConfigFor(peer PeerInfo, req *ConfigRequest) (*ConfigObject, error) {
	return f(peer, req)
}

// ConfigApplierFunc adapts a function to ConfigApplier.
type ConfigApplierFunc func(obj *ConfigObject) error

// Apply implements ConfigApplier.
func (f ConfigApplierFunc) Apply(obj *ConfigObject) error {
	return f(obj)
}

// StaticConfigSource hands every enrollee the same backhaul network.
type StaticConfigSource struct {
	SSID       string
	Passphrase string
	AKM        string
}

// ConfigFor implements ConfigSource.
func (s StaticConfigSource) ConfigFor(_ PeerInfo, req *ConfigRequest) (*ConfigObject, error) {
	tech := WiFiTechMAP
	if req != nil && req.WiFiTech != "" {
		tech = req.WiFiTech
	}
	akm := s.AKM
	if akm == "" {
		akm = "dpp+psk+sae"
	}
	return &ConfigObject{
		WiFiTech:  tech,
		Discovery: Discovery{SSID: s.SSID},
		Cred:      Credential{AKM: akm, Pass: s.Passphrase},
	}, nil
}

type acceptAll struct{}

func (acceptAll) Apply(*ConfigObject) error { return nil }
