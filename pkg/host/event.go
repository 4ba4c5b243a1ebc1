package host

type EventType string

const (
	EventSystem    EventType = "system"
	EventAssistant EventType = "assistant"
	EventResult    EventType = "result"
)

type EventSubtype string

const (
	SubtypeInit    EventSubtype = "init"
	SubtypeSuccess EventSubtype = "success"
)

type ContentType string

const (
	ContentText    ContentType = "text"
	ContentToolUse ContentType = "tool_use"
)

type ContentItem struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
	Name string      `json:"name,omitempty"`
}

type AssistantMessage struct {
	Role    string        `json:"role"`
	Content []ContentItem `json:"content"`
}

// Event is one element of a query's event stream.
type Event struct {
	Type         EventType         `json:"type"`
	Subtype      EventSubtype      `json:"subtype,omitempty"`
	SessionID    string            `json:"session_id,omitempty"`
	Message      *AssistantMessage `json:"message,omitempty"`
	TotalCostUSD *float64          `json:"total_cost_usd,omitempty"`
}

func InitEvent(sessionID string) Event {
	return Event{Type: EventSystem, Subtype: SubtypeInit, SessionID: sessionID}
}

func TextEvent(sessionID, text string) Event {
	return assistantEvent(sessionID, ContentItem{Type: ContentText, Text: text})
}

func ToolUseEvent(sessionID, name string) Event {
	return assistantEvent(sessionID, ContentItem{Type: ContentToolUse, Name: name})
}

// ResultEvent is the terminal success event. Cost is always reported, even
// when zero.
func ResultEvent(sessionID string, cost float64) Event {
	return Event{Type: EventResult, Subtype: SubtypeSuccess, SessionID: sessionID, TotalCostUSD: &cost}
}

func assistantEvent(sessionID string, item ContentItem) Event {
	return Event{
		Type:      EventAssistant,
		SessionID: sessionID,
		Message:   &AssistantMessage{Role: "assistant", Content: []ContentItem{item}},
	}
}
