package easyconnect

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/meshonboard/ec-go/pkg/dppcrypto"
	"github.com/meshonboard/ec-go/pkg/frame"
	"github.com/meshonboard/ec-go/pkg/log"
)

// Config holds engine policy.
type Config struct {
	// Role selects the node's handler at construction.
	Role Role

	// MAC is the node's identity in logs and protocol captures.
	MAC frame.MAC

	// AuthTimeout bounds PhaseAuthenticating.
	AuthTimeout time.Duration

	// ConfigTimeout bounds PhaseAuthenticated and PhaseConfiguring.
	ConfigTimeout time.Duration

	// ReconfigTimeout bounds PhaseReconfiguring.
	ReconfigTimeout time.Duration

	// ChirpInterval is the presence announcement period of a bootstrapped
	// enrollee.
	ChirpInterval time.Duration

	// RelayTTL bounds how long a proxy agent keeps a relayed frame waiting
	// for its enrollee.
	RelayTTL time.Duration

	// Suite performs the cryptographic exchanges. Defaults to P-256.
	Suite dppcrypto.Suite

	// Configurator is the controller's signing identity. A controller
	// without one generates a fresh identity for GroupID.
	Configurator *dppcrypto.Configurator
	GroupID      string

	// ConfigSource builds configurations on a controller.
	ConfigSource ConfigSource

	// ConfigApplier installs configurations on an enrollee. Defaults to
	// accepting every well-formed configuration.
	ConfigApplier ConfigApplier

	// DeviceName is sent in the enrollee's configuration request.
	DeviceName string

	// Logger is used for operational logging. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger captures frames and state changes. Nil disables it.
	ProtocolLogger log.Logger

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns a Config with sensible defaults for role.
func DefaultConfig(role Role) Config {
	return Config{
		Role:            role,
		AuthTimeout:     10 * time.Second,
		ConfigTimeout:   30 * time.Second,
		ReconfigTimeout: 30 * time.Second,
		ChirpInterval:   5 * time.Second,
		RelayTTL:        60 * time.Second,
		GroupID:         "mesh",
		DeviceName:      "ec-node",
	}
}

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	if c.Role > RoleEnrollee {
		return fmt.Errorf("%w: role %d", ErrInvalidConfig, c.Role)
	}
	if c.AuthTimeout <= 0 || c.ConfigTimeout <= 0 || c.ReconfigTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.ChirpInterval <= 0 || c.RelayTTL <= 0 {
		return fmt.Errorf("%w: chirp interval and relay TTL must be positive", ErrInvalidConfig)
	}
	if c.Role == RoleController && c.Configurator == nil && c.GroupID == "" {
		return fmt.Errorf("%w: controller needs a configurator identity or group", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) timeoutFor(p Phase) time.Duration {
	switch p {
	case PhaseAuthenticating:
		return c.AuthTimeout
	case PhaseAuthenticated, PhaseConfiguring:
		return c.ConfigTimeout
	case PhaseReconfiguring:
		return c.ReconfigTimeout
	default:
		return 0
	}
}
