package easyconnect

// Phase is the provisioning phase of an onboarding session.
type Phase uint8

const (
	// PhaseIdle means there is no session.
	PhaseIdle Phase = iota
	PhaseBootstrapped
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseConfiguring
	PhaseConfigured
	// PhaseReconfiguring is entered only from PhaseConfigured and falls back
	// to it on failure.
	PhaseReconfiguring
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseBootstrapped:
		return "BOOTSTRAPPED"
	case PhaseAuthenticating:
		return "AUTHENTICATING"
	case PhaseAuthenticated:
		return "AUTHENTICATED"
	case PhaseConfiguring:
		return "CONFIGURING"
	case PhaseConfigured:
		return "CONFIGURED"
	case PhaseReconfiguring:
		return "RECONFIGURING"
	default:
		return "UNKNOWN"
	}
}

// handshaking reports whether the phase still belongs to the bootstrapping
// exchange, where repeated announcements are duplicates.
func (p Phase) handshaking() bool {
	return p == PhaseBootstrapped || p == PhaseAuthenticating
}

// reconfigStep tracks progress inside PhaseReconfiguring.
type reconfigStep uint8

const (
	stepAnnounce reconfigStep = iota
	stepAuth
	stepConfig
)

func (s reconfigStep) String() string {
	switch s {
	case stepAnnounce:
		return "announce"
	case stepAuth:
		return "auth"
	case stepConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Role is the node's onboarding role.
type Role uint8

const (
	RoleController Role = iota
	RoleProxyAgent
	RoleEnrollee
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleController:
		return "CONTROLLER"
	case RoleProxyAgent:
		return "PROXY_AGENT"
	case RoleEnrollee:
		return "ENROLLEE"
	default:
		return "UNKNOWN"
	}
}

// ConfiguratorKind distinguishes the two configurator variants.
type ConfiguratorKind uint8

const (
	KindController ConfiguratorKind = iota
	KindProxyAgent
)

// String returns the variant name.
func (k ConfiguratorKind) String() string {
	switch k {
	case KindController:
		return "CONTROLLER"
	case KindProxyAgent:
		return "PROXY_AGENT"
	default:
		return "UNKNOWN"
	}
}
