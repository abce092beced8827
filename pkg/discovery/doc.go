// Package discovery advertises and finds mesh controllers over mDNS/DNS-SD.
//
// A controller that accepts DPP over TCP advertises the _dpp._tcp service.
// Agents and enrollees browse for it to learn the controller's 1905 AL
// address before any DPP frame is exchanged.
//
// Instance name format: EC-<al mac, 12 hex digits>
//
// TXT records:
//   - al: controller AL MAC (aa:bb:cc:dd:ee:ff), required
//   - v: DPP protocol version, required
//   - grp: network group ID, optional
//   - cs: first 8 bytes of the C-sign key hash (hex), optional
//   - n: device count managed by the controller, optional
package discovery
