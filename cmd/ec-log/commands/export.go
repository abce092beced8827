package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/meshonboard/ec-go/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	var write func(io.Writer) error
	switch format {
	case "jsonl":
		write = func(w io.Writer) error { return exportJSONL(path, w) }
	case "csv":
		write = func(w io.Writer) error { return exportCSV(path, w) }
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	if output == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return write(f)
}

func exportJSONL(path string, w io.Writer) error {
	enc := json.NewEncoder(w)
	return each(path, log.Filter{}, func(e log.Event) error {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

func exportCSV(path string, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "role", "direction", "carrier", "category", "peer_mac", "peer_id", "type", "size", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return each(path, log.Filter{}, func(e log.Event) error {
		kind, size, detail := "unknown", "", ""
		switch {
		case e.Frame != nil:
			kind = e.Frame.Type.String()
			size = strconv.Itoa(e.Frame.Size)
			if e.Frame.Status != nil {
				detail = e.Frame.Status.String()
			}
		case e.StateChange != nil:
			kind = "state"
			detail = e.StateChange.OldState + "->" + e.StateChange.NewState
		case e.Error != nil:
			kind = "error"
			detail = e.Error.Message
		}
		row := []string{
			e.Timestamp.UTC().Format(timeLayout),
			e.SessionID,
			e.LocalRole.String(),
			e.Direction.String(),
			e.Carrier.String(),
			e.Category.String(),
			e.PeerMAC,
			e.PeerID,
			kind,
			size,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
}
