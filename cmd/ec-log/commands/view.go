// Package commands implements the ec-log CLI commands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meshonboard/ec-go/pkg/log"
)

// timeLayout is used for every timestamp ec-log prints.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] ROLE DIRECTION CARRIER label
	ts := event.Timestamp.UTC().Format(timeLayout)

	label := "Unknown"
	switch {
	case event.Frame != nil:
		label = event.Frame.Type.String()
	case event.StateChange != nil:
		label = "State"
	case event.Error != nil:
		label = "Error"
	}

	fmt.Fprintf(w, "%s [%s] %s %-3s %s %s\n", ts, shortID(event.SessionID, 8),
		event.LocalRole, event.Direction, event.Carrier, label)
	if event.PeerMAC != "" || event.PeerID != "" {
		fmt.Fprintf(w, "  Peer: %s %s\n", event.PeerMAC, shortID(event.PeerID, 16))
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func shortID(id string, n int) string {
	if id == "" {
		return "-"
	}
	if len(id) > n {
		return id[:n]
	}
	return id
}

func formatFrameDetails(w io.Writer, fe *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", fe.Size)
	if fe.Status != nil {
		fmt.Fprintf(w, "  Status: %s\n", fe.Status)
	}
	if len(fe.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(fe.Data))
		if fe.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ParseDirectionFlag parses a direction (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCarrierFlag parses a carrier (case-insensitive).
func ParseCarrierFlag(s string) (log.Carrier, error) {
	switch strings.ToLower(s) {
	case "none":
		return log.CarrierNone, nil
	case "action":
		return log.CarrierAction, nil
	case "gas":
		return log.CarrierGAS, nil
	case "encap":
		return log.CarrierEncap, nil
	case "chirp":
		return log.CarrierChirp, nil
	default:
		return 0, fmt.Errorf("invalid carrier: %s (must be none, action, gas, encap or chirp)", s)
	}
}

// ParseCategoryFlag parses a category (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state or error)", s)
	}
}

// ParseRoleFlag parses a local role (case-insensitive).
func ParseRoleFlag(s string) (log.Role, error) {
	switch strings.ToLower(s) {
	case "controller":
		return log.RoleController, nil
	case "agent", "proxy", "proxy_agent":
		return log.RoleProxyAgent, nil
	case "enrollee":
		return log.RoleEnrollee, nil
	default:
		return 0, fmt.Errorf("invalid role: %s (must be controller, agent or enrollee)", s)
	}
}

// each streams the events in path matching filter to fn.
func each(path string, filter log.Filter, fn func(log.Event) error) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// RunView executes the view command.
func RunView(path string, filter log.Filter, output io.Writer) error {
	return each(path, filter, func(e log.Event) error {
		formatEvent(output, e)
		return nil
	})
}
