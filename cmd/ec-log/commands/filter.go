package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/meshonboard/ec-go/pkg/log"
)

// FilterOptions holds the raw flag values of the view and filter commands.
type FilterOptions struct {
	SessionID string
	PeerMAC   string
	PeerID    string
	TimeStart string
	TimeEnd   string
	Direction string
	Carrier   string
	Category  string
	Role      string
}

// Build parses the options into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	f := log.Filter{SessionID: o.SessionID, PeerMAC: o.PeerMAC, PeerID: o.PeerID}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start format: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end format: %w", err)
		}
		f.TimeEnd = &t
	}
	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Carrier != "" {
		c, err := ParseCarrierFlag(o.Carrier)
		if err != nil {
			return f, err
		}
		f.Carrier = &c
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.Role != "" {
		r, err := ParseRoleFlag(o.Role)
		if err != nil {
			return f, err
		}
		f.Role = &r
	}
	return f, nil
}

// RunFilter writes the events matching opts to output and reports the
// count on w.
func RunFilter(path, output string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	err = each(path, filter, func(e log.Event) error {
		logger.Log(e)
		count++
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, output)
	return nil
}
