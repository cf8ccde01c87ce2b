// Package commands implements the lwm2m-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/senml"
	"github.com/mikegpl/lwm2m-go/pkg/tlv"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer        *log.Layer
	Direction    *log.Direction
	Category     *log.Category
	FailuresOnly bool
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		Layer:        f.Layer,
		Direction:    f.Direction,
		Category:     f.Category,
		FailuresOnly: f.FailuresOnly,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [ep:name] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Exchange != nil:
		typeLabel = event.Exchange.Method.String() + " " + event.Exchange.URI
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [ep:%s] %-3s %s %s\n", ts, event.Endpoint, event.Direction.String(), event.Layer.String(), typeLabel)
	if event.Location != "" {
		fmt.Fprintf(w, "  Location: %s\n", event.Location)
	}

	switch {
	case event.Exchange != nil:
		formatExchangeDetails(w, event.Exchange)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// formatExchangeDetails writes request/response details.
func formatExchangeDetails(w io.Writer, ex *log.ExchangeEvent) {
	if ex.Code != nil {
		fmt.Fprintf(w, "  Code: %s\n", ex.Code.String())
	} else {
		fmt.Fprintln(w, "  Code: (no response)")
	}
	if ex.Accept != wire.FormatNone {
		fmt.Fprintf(w, "  Accept: %s\n", ex.Accept.String())
	}
	if ex.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(ex.Duration))
	}
	if ex.Size == 0 {
		return
	}

	fmt.Fprintf(w, "  Payload: %d bytes, %s", ex.Size, ex.ContentFormat.String())
	if ex.Truncated {
		fmt.Fprint(w, " (truncated)")
	}
	fmt.Fprintln(w)
	for _, line := range describePayload(ex) {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// describePayload renders a captured payload by content format. Truncated
// structured payloads fall back to hex.
func describePayload(ex *log.ExchangeEvent) []string {
	switch ex.ContentFormat {
	case wire.FormatTextPlain:
		return []string{fmt.Sprintf("%q", ex.Payload)}
	case wire.FormatLinkFormat:
		return strings.Split(string(ex.Payload), ",")
	case wire.FormatSenMLJSON, wire.FormatSenMLCBOR:
		if ex.Truncated {
			break
		}
		pack, err := senml.Decode(ex.ContentFormat, ex.Payload)
		if err != nil {
			break
		}
		lines := make([]string, 0, len(pack))
		for _, r := range pack {
			lines = append(lines, fmt.Sprintf("%s = %v @ %s", r.Name, r.Value(), r.Timestamp().UTC().Format(time.RFC3339)))
		}
		return lines
	case wire.FormatTLV:
		if ex.Truncated {
			break
		}
		elems, err := tlv.Decode(ex.Payload)
		if err != nil {
			break
		}
		lines := make([]string, 0, len(elems))
		for _, e := range elems {
			lines = append(lines, e.String())
		}
		return lines
	}
	return []string{hex.EncodeToString(ex.Payload)}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %s\n", err.Code.String())
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "registration":
		return log.LayerRegistration, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, registration, or service)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
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

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "exchange":
		return log.CategoryExchange, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be exchange, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
