package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/meshonboard/ec-go/pkg/frame"
	"github.com/meshonboard/ec-go/pkg/log"
)

// Stats holds aggregate statistics about a capture.
type Stats struct {
	TotalEvents       int
	EventsByCarrier   map[log.Carrier]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	FramesByType      map[frame.Type]int
	Sessions          map[string]*SessionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for one onboarding session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	PeerID    string
	PeerMAC   string

	// LastPhase is the most recent session state recorded.
	LastPhase string
}

func newStats() *Stats {
	return &Stats{
		EventsByCarrier:   make(map[log.Carrier]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		FramesByType:      make(map[frame.Type]int),
		Sessions:          make(map[string]*SessionStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCarrier[event.Carrier]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.Frame != nil {
		s.FramesByType[event.Frame.Type]++
	}
	if event.Error != nil {
		s.Errors++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.SessionID == "" {
		return
	}
	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if sess.PeerID == "" {
		sess.PeerID = event.PeerID
	}
	if sess.PeerMAC == "" {
		sess.PeerMAC = event.PeerMAC
	}
	if sc := event.StateChange; sc != nil && sc.Entity == log.StateEntitySession {
		sess.LastPhase = sc.NewState
	}
}

// RunStats analyzes the capture and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats := newStats()
	if err := each(path, log.Filter{}, func(e log.Event) error {
		stats.add(e)
		return nil
	}); err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Easy Connect Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Carrier:")
	for _, c := range []log.Carrier{log.CarrierNone, log.CarrierAction, log.CarrierGAS, log.CarrierEncap, log.CarrierChirp} {
		if n := stats.EventsByCarrier[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := stats.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", d.String()+":", n)
		}
	}

	if len(stats.FramesByType) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Frames by Type:")
		types := make([]frame.Type, 0, len(stats.FramesByType))
		for t := range stats.FramesByType {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		for _, t := range types {
			fmt.Fprintf(w, "  %-28s %d\n", t.String()+":", stats.FramesByType[t])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type entry struct {
			id string
			s  *SessionStats
		}
		sessions := make([]entry, 0, len(stats.Sessions))
		for id, s := range stats.Sessions {
			sessions = append(sessions, entry{id, s})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].s.FirstSeen.Before(sessions[j].s.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, e := range sessions {
			d := e.s.LastSeen.Sub(e.s.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortID(e.id, 8), e.s.Events, d)
			if e.s.PeerMAC != "" {
				fmt.Fprintf(w, "           Peer: %s\n", e.s.PeerMAC)
			}
			if e.s.LastPhase != "" {
				fmt.Fprintf(w, "           Phase: %s\n", e.s.LastPhase)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
