// Package config loads ec-node settings from a YAML file, an optional .env
// file and the process environment, in that order of precedence (later
// sources win).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/meshonboard/ec-go/pkg/easyconnect"
	"github.com/meshonboard/ec-go/pkg/frame"
)

// ErrInvalid reports an unusable configuration.
var ErrInvalid = errors.New("invalid node configuration")

// EnvPrefix starts every environment override.
const EnvPrefix = "EC_"

// NodeConfig is the full ec-node configuration.
type NodeConfig struct {
	// Role is controller, agent or enrollee.
	Role string `yaml:"role"`

	// MAC is the radio address; ALMAC the 1905 AL address.
	MAC             string `yaml:"mac"`
	ALMAC           string `yaml:"al_mac"`
	ControllerALMAC string `yaml:"controller_al_mac"`

	GroupID    string `yaml:"group_id"`
	DeviceName string `yaml:"device_name"`

	Timeouts      Timeouts      `yaml:"timeouts"`
	ChirpInterval time.Duration `yaml:"chirp_interval"`
	RelayTTL      time.Duration `yaml:"relay_ttl"`
	TickInterval  time.Duration `yaml:"tick_interval"`

	// MaxDevices caps onboarded peers on a controller; 0 is unlimited.
	MaxDevices int `yaml:"max_devices"`

	Network Network `yaml:"network"`

	// BootstrapKey is the PEM private key an enrollee onboards with. It is
	// generated on first start when missing.
	BootstrapKey string `yaml:"bootstrap_key"`

	// BootstrapURIs are DPP URIs a controller registers at start.
	BootstrapURIs []string `yaml:"bootstrap_uris"`

	RegistryPath string `yaml:"registry_path"`
	ProtocolLog  string `yaml:"protocol_log"`
	LogLevel     string `yaml:"log_level"`

	Link LinkConfig `yaml:"link"`
	MDNS MDNSConfig `yaml:"mdns"`
}

// Timeouts bounds the onboarding phases.
type Timeouts struct {
	Auth     time.Duration `yaml:"auth"`
	Config   time.Duration `yaml:"config"`
	Reconfig time.Duration `yaml:"reconfig"`
}

// Network is the backhaul a controller hands to enrollees.
type Network struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
	AKM        string `yaml:"akm"`
}

// LinkConfig configures the simulated UDP link.
type LinkConfig struct {
	Listen string   `yaml:"listen"`
	Peers  []string `yaml:"peers"`
}

// MDNSConfig configures controller discovery.
type MDNSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
}

// Default returns a configuration with sensible defaults.
func Default() NodeConfig {
	ec := easyconnect.DefaultConfig(easyconnect.RoleEnrollee)
	return NodeConfig{
		Role:       "enrollee",
		GroupID:    ec.GroupID,
		DeviceName: ec.DeviceName,
		Timeouts: Timeouts{
			Auth:     ec.AuthTimeout,
			Config:   ec.ConfigTimeout,
			Reconfig: ec.ReconfigTimeout,
		},
		ChirpInterval: ec.ChirpInterval,
		RelayTTL:      ec.RelayTTL,
		TickInterval:  time.Second,
		LogLevel:      "info",
		Link:          LinkConfig{Listen: "127.0.0.1:9908"},
	}
}

// Load builds a configuration from the defaults, the YAML file at path
// (skipped when empty), the .env file at envFile (skipped when empty or
// missing) and the process environment.
func Load(path, envFile string) (NodeConfig, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decodeYAML(raw); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			if err := cfg.applyEnv(mapLookup(vals)); err != nil {
				return cfg, fmt.Errorf("%s: %w", envFile, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("read env file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *NodeConfig) decodeYAML(raw []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// applyEnv overrides fields from EC_* variables.
func (c *NodeConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"ROLE":              &c.Role,
		"MAC":               &c.MAC,
		"AL_MAC":            &c.ALMAC,
		"CONTROLLER_AL_MAC": &c.ControllerALMAC,
		"GROUP_ID":          &c.GroupID,
		"DEVICE_NAME":       &c.DeviceName,
		"SSID":              &c.Network.SSID,
		"PASSPHRASE":        &c.Network.Passphrase,
		"AKM":               &c.Network.AKM,
		"BOOTSTRAP_KEY":     &c.BootstrapKey,
		"REGISTRY":          &c.RegistryPath,
		"PROTOCOL_LOG":      &c.ProtocolLog,
		"LOG_LEVEL":         &c.LogLevel,
		"LINK_LISTEN":       &c.Link.Listen,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "LINK_PEERS"); ok {
		c.Link.Peers = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "MAX_DEVICES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_DEVICES=%q", ErrInvalid, EnvPrefix, v)
		}
		c.MaxDevices = n
	}
	if v, ok := lookup(EnvPrefix + "MDNS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sMDNS=%q", ErrInvalid, EnvPrefix, v)
		}
		c.MDNS.Enabled = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseRole maps a role name to the engine role. "agent" and "proxy" are
// accepted for the proxy agent.
func ParseRole(s string) (easyconnect.Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "controller":
		return easyconnect.RoleController, nil
	case "agent", "proxy", "proxy_agent":
		return easyconnect.RoleProxyAgent, nil
	case "enrollee":
		return easyconnect.RoleEnrollee, nil
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrInvalid, s)
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
	return l, nil
}

// Validate checks the configuration for consistency.
func (c *NodeConfig) Validate() error {
	role, err := ParseRole(c.Role)
	if err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	for name, v := range map[string]string{"mac": c.MAC, "al_mac": c.ALMAC, "controller_al_mac": c.ControllerALMAC} {
		if v == "" {
			continue
		}
		if _, err := frame.ParseMAC(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	if role == easyconnect.RoleController && c.Network.SSID == "" {
		return fmt.Errorf("%w: controller needs network.ssid", ErrInvalid)
	}
	if c.MaxDevices < 0 {
		return fmt.Errorf("%w: max_devices must not be negative", ErrInvalid)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalid)
	}
	ec, err := c.Engine()
	if err != nil {
		return err
	}
	return ec.Validate()
}

// Addresses returns the parsed radio, AL and controller AL addresses.
// Unset addresses are zero.
func (c *NodeConfig) Addresses() (mac, al, controllerAL frame.MAC) {
	mac, _ = frame.ParseMAC(c.MAC)
	al, _ = frame.ParseMAC(c.ALMAC)
	controllerAL, _ = frame.ParseMAC(c.ControllerALMAC)
	return mac, al, controllerAL
}

// Engine returns the onboarding engine policy this configuration selects.
// Logger, protocol logger, clock and config applier are left for the
// caller to wire.
func (c *NodeConfig) Engine() (easyconnect.Config, error) {
	role, err := ParseRole(c.Role)
	if err != nil {
		return easyconnect.Config{}, err
	}
	ec := easyconnect.DefaultConfig(role)
	ec.MAC, _, _ = c.Addresses()
	ec.GroupID = c.GroupID
	ec.DeviceName = c.DeviceName
	ec.AuthTimeout = c.Timeouts.Auth
	ec.ConfigTimeout = c.Timeouts.Config
	ec.ReconfigTimeout = c.Timeouts.Reconfig
	ec.ChirpInterval = c.ChirpInterval
	ec.RelayTTL = c.RelayTTL
	if role == easyconnect.RoleController {
		ec.ConfigSource = easyconnect.StaticConfigSource{
			SSID:       c.Network.SSID,
			Passphrase: c.Network.Passphrase,
			AKM:        c.Network.AKM,
		}
	}
	return ec, nil
}
