// Package easyconnect is the DPP onboarding engine of a multi-AP mesh node.
//
// A Manager owns the node's onboarding role: a Configurator (either the
// mesh Controller or an onboarded Proxy Agent) or an Enrollee. It accepts
// inbound frames from four carriers (DPP action frames, GAS frames, 1905
// Encap DPP TLVs and Chirp Value TLVs), routes each to the handler valid for
// the node's role and drives the per-peer provisioning phases:
//
//	Idle -> Bootstrapped -> Authenticating -> Authenticated -> Configuring -> Configured
//	                                                              Configured <-> Reconfiguring
//
// The Manager never owns sockets. Outbound frames go through the Transport
// capability bundle bound at construction, and are emitted only after the
// Manager's lock has been released so transports may deliver synchronously.
//
// Expiry of in-flight phases is driven by the caller through Tick or Run.
package easyconnect
