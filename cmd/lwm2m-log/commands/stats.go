package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Endpoints         map[string]*EndpointStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// EndpointStats holds statistics for a single client endpoint.
type EndpointStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Locations []string

	// Requests counts exchanges by method.
	Requests map[string]int

	// Failures counts exchanges without a 2.xx reply.
	Failures int

	// MaxDuration is the slowest exchange.
	MaxDuration time.Duration
}

// CollectStats reads the whole log file.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Endpoints:         make(map[string]*EndpointStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	ep, ok := s.Endpoints[event.Endpoint]
	if !ok {
		ep = &EndpointStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Requests:  make(map[string]int),
		}
		s.Endpoints[event.Endpoint] = ep
	}
	ep.Events++
	if event.Timestamp.After(ep.LastSeen) {
		ep.LastSeen = event.Timestamp
	}
	if event.Location != "" && (len(ep.Locations) == 0 || ep.Locations[len(ep.Locations)-1] != event.Location) {
		ep.Locations = append(ep.Locations, event.Location)
	}

	if ex := event.Exchange; ex != nil {
		ep.Requests[ex.Method.String()]++
		if ex.Code == nil || !ex.Code.IsSuccess() {
			ep.Failures++
		}
		if ex.Duration > ep.MaxDuration {
			ep.MaxDuration = ex.Duration
		}
	}

	if event.Error != nil {
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== LwM2M Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerRegistration, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryExchange, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Endpoints: %d\n", len(stats.Endpoints))
	names := make([]string, 0, len(stats.Endpoints))
	for name := range stats.Endpoints {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return stats.Endpoints[names[i]].FirstSeen.Before(stats.Endpoints[names[j]].FirstSeen)
	})
	for _, name := range names {
		ep := stats.Endpoints[name]
		duration := ep.LastSeen.Sub(ep.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "\n  [%s] %d events, duration %s\n", name, ep.Events, duration)
		for _, loc := range ep.Locations {
			fmt.Fprintf(w, "           Location: %s\n", loc)
		}
		methods := make([]string, 0, len(ep.Requests))
		for m := range ep.Requests {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			fmt.Fprintf(w, "           %-6s %d\n", m, ep.Requests[m])
		}
		if ep.Failures > 0 {
			fmt.Fprintf(w, "           Failed exchanges: %d\n", ep.Failures)
		}
		if ep.MaxDuration > 0 {
			fmt.Fprintf(w, "           Slowest exchange: %s\n", formatDuration(ep.MaxDuration))
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
