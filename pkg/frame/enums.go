package frame

// 802.11 and Wi-Fi Alliance identifiers used by DPP.
const (
	// CategoryPublic is the public action frame category.
	CategoryPublic uint8 = 0x04

	// ActionVendorSpecific is the public action code for vendor-specific frames.
	ActionVendorSpecific uint8 = 0x09

	// OUITypeDPP is the WFA OUI type for DPP.
	OUITypeDPP uint8 = 0x1A

	// CryptoSuiteDPP is the only defined DPP cryptographic suite.
	CryptoSuiteDPP uint8 = 0x01

	// ElementIDVendor is the vendor-specific information element ID.
	ElementIDVendor uint8 = 0xDD

	// ElementIDAdvertisementProtocol is the GAS advertisement protocol element ID.
	ElementIDAdvertisementProtocol uint8 = 0x6C

	// OUITypeCCE is the WFA OUI type of the Configurator Connectivity Element.
	OUITypeCCE uint8 = 0x1E

	// DPPConfigProtocol is the advertisement protocol subtype for DPP configuration.
	DPPConfigProtocol uint8 = 0x01
)

// WFAOUI is the Wi-Fi Alliance organizationally unique identifier.
var WFAOUI = [3]byte{0x50, 0x6F, 0x9A}

// BroadcastMAC is the 802.11 broadcast address.
var BroadcastMAC = MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Type is the DPP public action frame type.
type Type uint8

const (
	TypeAuthRequest           Type = 0
	TypeAuthResponse          Type = 1
	TypeAuthConfirm           Type = 2
	TypePeerDiscoveryRequest  Type = 5
	TypePeerDiscoveryResponse Type = 6
	TypePKEXExchangeRequest   Type = 7
	TypePKEXExchangeResponse  Type = 8
	TypePKEXCommitRevealReq   Type = 9
	TypePKEXCommitRevealResp  Type = 10
	TypeConfigResult          Type = 11
	TypeConnStatusResult      Type = 12
	TypePresenceAnnouncement  Type = 13
	TypeReconfigAnnouncement  Type = 14
	TypeReconfigAuthRequest   Type = 15
	TypeReconfigAuthResponse  Type = 16
	TypeReconfigAuthConfirm   Type = 17

	// TypeGAS is not a DPP frame type. It is used in the Encap DPP TLV frame
	// type field when the encapsulated frame is a GAS frame.
	TypeGAS Type = 255
)

// String returns the frame type name.
func (t Type) String() string {
	switch t {
	case TypeAuthRequest:
		return "AUTH_REQUEST"
	case TypeAuthResponse:
		return "AUTH_RESPONSE"
	case TypeAuthConfirm:
		return "AUTH_CONFIRM"
	case TypePeerDiscoveryRequest:
		return "PEER_DISCOVERY_REQUEST"
	case TypePeerDiscoveryResponse:
		return "PEER_DISCOVERY_RESPONSE"
	case TypePKEXExchangeRequest:
		return "PKEX_EXCHANGE_REQUEST"
	case TypePKEXExchangeResponse:
		return "PKEX_EXCHANGE_RESPONSE"
	case TypePKEXCommitRevealReq:
		return "PKEX_COMMIT_REVEAL_REQUEST"
	case TypePKEXCommitRevealResp:
		return "PKEX_COMMIT_REVEAL_RESPONSE"
	case TypeConfigResult:
		return "CONFIG_RESULT"
	case TypeConnStatusResult:
		return "CONNECTION_STATUS_RESULT"
	case TypePresenceAnnouncement:
		return "PRESENCE_ANNOUNCEMENT"
	case TypeReconfigAnnouncement:
		return "RECONFIG_ANNOUNCEMENT"
	case TypeReconfigAuthRequest:
		return "RECONFIG_AUTH_REQUEST"
	case TypeReconfigAuthResponse:
		return "RECONFIG_AUTH_RESPONSE"
	case TypeReconfigAuthConfirm:
		return "RECONFIG_AUTH_CONFIRM"
	case TypeGAS:
		return "GAS"
	default:
		return "UNKNOWN"
	}
}

// Supported reports whether the codec understands this frame type.
// PKEX frames are recognized but not supported.
func (t Type) Supported() bool {
	switch t {
	case TypeAuthRequest, TypeAuthResponse, TypeAuthConfirm,
		TypePeerDiscoveryRequest, TypePeerDiscoveryResponse,
		TypeConfigResult, TypeConnStatusResult,
		TypePresenceAnnouncement, TypeReconfigAnnouncement,
		TypeReconfigAuthRequest, TypeReconfigAuthResponse, TypeReconfigAuthConfirm:
		return true
	default:
		return false
	}
}

// AttributeID identifies a DPP attribute.
type AttributeID uint16

const (
	AttrStatus                 AttributeID = 0x1000
	AttrInitiatorBootstrapHash AttributeID = 0x1001
	AttrResponderBootstrapHash AttributeID = 0x1002
	AttrInitiatorProtocolKey   AttributeID = 0x1003
	AttrWrappedData            AttributeID = 0x1004
	AttrInitiatorNonce         AttributeID = 0x1005
	AttrInitiatorCapabilities  AttributeID = 0x1006
	AttrResponderNonce         AttributeID = 0x1007
	AttrResponderCapabilities  AttributeID = 0x1008
	AttrResponderProtocolKey   AttributeID = 0x1009
	AttrInitiatorAuthTag       AttributeID = 0x100A
	AttrResponderAuthTag       AttributeID = 0x100B
	AttrConfigurationObject    AttributeID = 0x100C
	AttrConnector              AttributeID = 0x100D
	AttrConfigRequestObject    AttributeID = 0x100E
	AttrBootstrappingKey       AttributeID = 0x100F
	AttrFiniteCyclicGroup      AttributeID = 0x1012
	AttrEncryptedKey           AttributeID = 0x1013
	AttrEnrolleeNonce          AttributeID = 0x1014
	AttrCodeIdentifier         AttributeID = 0x1015
	AttrTransactionID          AttributeID = 0x1016
	AttrBootstrappingInfo      AttributeID = 0x1017
	AttrChannel                AttributeID = 0x1018
	AttrProtocolVersion        AttributeID = 0x1019
	AttrEnvelopedData          AttributeID = 0x101A
	AttrSendConnStatus         AttributeID = 0x101B
	AttrConnStatus             AttributeID = 0x101C
	AttrReconfigFlags          AttributeID = 0x101D
	AttrCSignKeyHash           AttributeID = 0x101E
	AttrCSRAttributesRequest   AttributeID = 0x101F
	AttrANonce                 AttributeID = 0x1020
	AttrEPrimeID               AttributeID = 0x1021
	AttrConfiguratorNonce      AttributeID = 0x1022
)

// String returns the attribute name.
func (a AttributeID) String() string {
	switch a {
	case AttrStatus:
		return "STATUS"
	case AttrInitiatorBootstrapHash:
		return "I_BOOTSTRAP_HASH"
	case AttrResponderBootstrapHash:
		return "R_BOOTSTRAP_HASH"
	case AttrInitiatorProtocolKey:
		return "I_PROTOCOL_KEY"
	case AttrWrappedData:
		return "WRAPPED_DATA"
	case AttrInitiatorNonce:
		return "I_NONCE"
	case AttrInitiatorCapabilities:
		return "I_CAPABILITIES"
	case AttrResponderNonce:
		return "R_NONCE"
	case AttrResponderCapabilities:
		return "R_CAPABILITIES"
	case AttrResponderProtocolKey:
		return "R_PROTOCOL_KEY"
	case AttrInitiatorAuthTag:
		return "I_AUTH_TAG"
	case AttrResponderAuthTag:
		return "R_AUTH_TAG"
	case AttrConfigurationObject:
		return "CONFIG_OBJECT"
	case AttrConnector:
		return "CONNECTOR"
	case AttrConfigRequestObject:
		return "CONFIG_REQUEST_OBJECT"
	case AttrEnrolleeNonce:
		return "E_NONCE"
	case AttrTransactionID:
		return "TRANSACTION_ID"
	case AttrChannel:
		return "CHANNEL"
	case AttrProtocolVersion:
		return "PROTOCOL_VERSION"
	case AttrReconfigFlags:
		return "RECONFIG_FLAGS"
	case AttrCSignKeyHash:
		return "C_SIGN_KEY_HASH"
	default:
		return "UNKNOWN"
	}
}

// Status is a DPP status code.
type Status uint8

const (
	StatusOK                   Status = 0
	StatusNotCompatible        Status = 1
	StatusAuthFailure          Status = 2
	StatusBadCode              Status = 3
	StatusBadGroup             Status = 4
	StatusConfigurationFailure Status = 5
	StatusResponsePending      Status = 6
	StatusInvalidConnector     Status = 7
	StatusNoMatch              Status = 8
	StatusConfigRejected       Status = 9
	StatusNoAPDiscovered       Status = 10
	StatusConfigurePending     Status = 11
	StatusCSRNeeded            Status = 12
	StatusCSRBad               Status = 13
	StatusNewKeyNeeded         Status = 14
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotCompatible:
		return "NOT_COMPATIBLE"
	case StatusAuthFailure:
		return "AUTH_FAILURE"
	case StatusBadCode:
		return "BAD_CODE"
	case StatusBadGroup:
		return "BAD_GROUP"
	case StatusConfigurationFailure:
		return "CONFIGURATION_FAILURE"
	case StatusResponsePending:
		return "RESPONSE_PENDING"
	case StatusInvalidConnector:
		return "INVALID_CONNECTOR"
	case StatusNoMatch:
		return "NO_MATCH"
	case StatusConfigRejected:
		return "CONFIG_REJECTED"
	case StatusNoAPDiscovered:
		return "NO_AP_DISCOVERED"
	case StatusConfigurePending:
		return "CONFIGURE_PENDING"
	case StatusCSRNeeded:
		return "CSR_NEEDED"
	case StatusCSRBad:
		return "CSR_BAD"
	case StatusNewKeyNeeded:
		return "NEW_KEY_NEEDED"
	default:
		return "UNKNOWN"
	}
}

// GASAction is the public action code of a GAS frame.
type GASAction uint8

const (
	GASInitialRequest   GASAction = 0x0A
	GASInitialResponse  GASAction = 0x0B
	GASComebackRequest  GASAction = 0x0C
	GASComebackResponse GASAction = 0x0D
)

// String returns the GAS action name.
func (a GASAction) String() string {
	switch a {
	case GASInitialRequest:
		return "GAS_INITIAL_REQUEST"
	case GASInitialResponse:
		return "GAS_INITIAL_RESPONSE"
	case GASComebackRequest:
		return "GAS_COMEBACK_REQUEST"
	case GASComebackResponse:
		return "GAS_COMEBACK_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// EasyMesh TLV types.
const (
	TLVTypeEncapDPP   uint8 = 0xCD
	TLVTypeChirpValue uint8 = 0xD3
)
