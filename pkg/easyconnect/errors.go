package easyconnect

import "errors"

// Engine errors. Public Manager methods report failure as false; these
// errors travel through the handlers and show up in logs and events.
var (
	ErrRoleViolation   = errors.New("operation not valid for node role")
	ErrNoConfigurator  = errors.New("no configurator handler")
	ErrNoEnrollee      = errors.New("no enrollee handler")
	ErrPhaseMismatch   = errors.New("message not expected in current phase")
	ErrUnknownPeer     = errors.New("no session or bootstrap for peer")
	ErrSessionActive   = errors.New("peer already has an active session")
	ErrAdmissionDenied = errors.New("no capacity to onboard additional devices")
	ErrNotConfigured   = errors.New("enrollee has not completed configuration")
	ErrBadBootstrap    = errors.New("invalid bootstrapping data")
	ErrConfigRejected  = errors.New("configuration rejected")
	ErrTransport       = errors.New("transport failure")
	ErrInvalidConfig   = errors.New("invalid engine configuration")
	ErrUnexpectedFrame = errors.New("frame type not handled by this role")
)
