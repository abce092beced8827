package mock

import "errors"

// Mock package errors.
var (
	// ErrNodeNotFound is returned when a frame is addressed to an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrOutOfRange is returned when a unicast radio frame has no receiver in range.
	ErrOutOfRange = errors.New("receiver out of radio range")

	// ErrLinkDown is returned when a node's backhaul link is disabled.
	ErrLinkDown = errors.New("backhaul link down")
)
