// Package simlink carries onboarding traffic between ec-node processes over
// UDP. It stands in for both the Wi-Fi radio (action and GAS frames,
// addressed by radio MAC) and the IEEE 1905 backhaul (chirp and
// encapsulated DPP messages, addressed by AL MAC).
//
// Every datagram is a CBOR-encoded Envelope. A link sends each envelope to
// all configured peers; receivers drop envelopes that are not addressed to
// them, so a set of links behaves like a shared medium.
package simlink
