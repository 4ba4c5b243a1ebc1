package query

import (
	"github.com/zerosync-co/opencode-provider/pkg/client"
	"github.com/zerosync-co/opencode-provider/pkg/host"
)

// TranslateParts maps backend reply parts to assistant events, in order.
// Parts of other types are dropped.
func TranslateParts(sessionID string, parts []client.Part) []host.Event {
	events := make([]host.Event, 0, len(parts))
	for _, p := range parts {
		if ev, ok := translatePart(sessionID, p); ok {
			events = append(events, ev)
		}
	}
	return events
}

func translatePart(sessionID string, p client.Part) (host.Event, bool) {
	switch p.Type {
	case client.PartText:
		return host.TextEvent(sessionID, p.Text), true
	case client.PartToolUse, client.PartToolCall:
		return host.ToolUseEvent(sessionID, p.Name), true
	default:
		return host.Event{}, false
	}
}
