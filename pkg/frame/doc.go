// Package frame implements the wire codecs for Wi-Fi Easy Connect (DPP)
// onboarding traffic inside an EasyMesh network.
//
// Four carriers are supported:
//   - Vendor-specific public action frames carrying DPP messages
//   - GAS public action frames carrying the configuration exchange
//   - 1905 Encap DPP TLVs relaying either of the above through the backhaul
//   - DPP Chirp Value TLVs announcing a device that wants to be onboarded
//
// # Action Frame Layout
//
//	| category | action | OUI (3) | OUI type | crypto suite | frame type | attributes... |
//	|   0x04   |  0x09  | 506F9A  |   0x1A   |     0x01     |            |               |
//
// # Attributes
//
// DPP attributes are encoded as a 2-byte little-endian identifier, a 2-byte
// little-endian length and the value. Attributes are kept in wire order.
//
// # Errors
//
// The codec has no knowledge of protocol phases. Every decode failure is a
// *ParseError whose Kind can be matched with errors.Is against the package
// sentinels (ErrTruncated, ErrBadCategory, ...). Parsing never retains a
// reference to the input buffer.
package frame
