package discovery

import (
	"errors"
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
)

// Service type constants for mDNS.
const (
	// ServiceTypeController is the DPP-over-TCP configurator service.
	ServiceTypeController = "_dpp._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the DPP TCP port.
	DefaultPort = 8908
)

// TXT record keys.
const (
	TXTKeyALMAC       = "al"
	TXTKeyVersion     = "v"
	TXTKeyGroup       = "grp"
	TXTKeyCSignHash   = "cs"
	TXTKeyDeviceCount = "n"
)

// Timing and limits.
const (
	// BrowseTimeout is the default timeout for FindController.
	BrowseTimeout = 10 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// CSignHashLen is the number of C-sign key hash bytes carried in TXT.
	CSignHashLen = 8

	// InstancePrefix starts every controller instance name.
	InstancePrefix = "EC-"
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidVersion      = errors.New("invalid protocol version")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrBrowseTimeout       = errors.New("browse timeout")
)

// ControllerInfo is what a controller advertises.
type ControllerInfo struct {
	ALMAC frame.MAC

	// Version is the highest DPP protocol version supported.
	Version uint8

	GroupID string

	// CSignHash is a prefix of the configurator's C-sign key hash; it lets
	// an agent tell controllers of different networks apart.
	CSignHash []byte

	DeviceCount uint16

	// Port defaults to DefaultPort.
	Port uint16
}

// ControllerService is a controller found by browsing.
type ControllerService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	ControllerInfo
}
