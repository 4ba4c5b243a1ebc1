package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zerosync-co/opencode-provider/pkg/host"
)

// OutputFormat selects how query output is printed.
type OutputFormat string

const (
	// TextFormat is plain text output (default)
	TextFormat OutputFormat = "text"

	// JSONFormat prints one JSON object per event
	JSONFormat OutputFormat = "json"
)

// IsValid checks if the output format is valid
func (f OutputFormat) IsValid() bool {
	return f == TextFormat || f == JSONFormat
}

// String returns the string representation of the output format
func (f OutputFormat) String() string {
	return string(f)
}

// Parse converts a flag value into an OutputFormat.
func Parse(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format %q: must be %q or %q", s, TextFormat, JSONFormat)
	}
	return f, nil
}

// FormatEvent renders one query event. JSON output is one compact object per
// event. Text output shows assistant content only and returns "" for other
// events.
func FormatEvent(ev host.Event, format OutputFormat) (string, error) {
	switch format {
	case TextFormat:
		if ev.Type != host.EventAssistant || ev.Message == nil {
			return "", nil
		}
		var sb strings.Builder
		for _, item := range ev.Message.Content {
			switch item.Type {
			case host.ContentText:
				sb.WriteString(item.Text)
			case host.ContentToolUse:
				fmt.Fprintf(&sb, "[tool: %s]", item.Name)
			}
		}
		return sb.String(), nil
	case JSONFormat:
		b, err := json.Marshal(ev)
		if err != nil {
			return "", fmt.Errorf("failed to marshal event: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
