package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Advertiser publishes the controller service.
type Advertiser interface {
	// AdvertiseController starts advertising, replacing any earlier
	// advertisement.
	AdvertiseController(ctx context.Context, info *ControllerInfo) error

	// UpdateController replaces the TXT records of the running
	// advertisement.
	UpdateController(info *ControllerInfo) error

	// StopController stops advertising.
	StopController() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Logger is used for debug logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: 120 * time.Second,
	}
}

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{config: config}, nil
}

// interfaces returns the network interfaces to advertise on; nil means all.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// AdvertiseController starts advertising the controller service.
func (a *MDNSAdvertiser) AdvertiseController(ctx context.Context, info *ControllerInfo) error {
	if info == nil || info.ALMAC.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyALMAC)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instance := InstanceName(info.ALMAC)
	if err := ValidateInstanceName(instance); err != nil {
		return err
	}
	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		instance,
		ServiceTypeController,
		Domain,
		port,
		TXTRecordsToStrings(EncodeControllerTXT(info)),
		interfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register controller service: %w", err)
	}
	a.server = server
	a.debugLog("advertising controller", "instance", instance, "port", port)
	return nil
}

// UpdateController updates the TXT records of the running advertisement.
func (a *MDNSAdvertiser) UpdateController(info *ControllerInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotFound
	}
	a.server.SetText(TXTRecordsToStrings(EncodeControllerTXT(info)))
	return nil
}

// StopController stops advertising. Stopping twice is not an error.
func (a *MDNSAdvertiser) StopController() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.debugLog("controller advertisement stopped")
	}
	return nil
}

func (a *MDNSAdvertiser) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)
