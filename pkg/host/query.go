package host

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
)

// QueryRequest is the host's generic query shape.
type QueryRequest struct {
	Prompt          string         `json:"prompt"`
	SystemPrompt    string         `json:"systemPrompt,omitempty"`
	Resume          string         `json:"resume,omitempty"`
	Model           string         `json:"model,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
	MaxTokens       *int           `json:"maxTokens,omitempty"`
	TopP            *float64       `json:"topP,omitempty"`
	Images          []string       `json:"images,omitempty"`
	Tools           []string       `json:"tools,omitempty"`
	A2AServers      A2AServers     `json:"a2aServers,omitempty"`
	AllowedTools    []string       `json:"allowedTools,omitempty"`
	ProviderOptions map[string]any `json:"providerOptions,omitempty"`
}

// A2AServer describes an external tool server. Key is the map key the host
// filed the server under; Name is the server's declared name.
type A2AServer struct {
	Key     string     `json:"-"`
	Name    string     `json:"name,omitempty"`
	Version string     `json:"version,omitempty"`
	Tools   []mcp.Tool `json:"tools"`
}

// ID is what tool identifiers are namespaced with: Key, or Name when the
// server was built without one.
func (s A2AServer) ID() string {
	if s.Key != "" {
		return s.Key
	}
	return s.Name
}

// A2AServers keeps servers in the order the host supplied them. On the wire
// it is an object keyed by server ID.
type A2AServers []A2AServer

func (s A2AServers) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := []byte{'{'}
	for i, srv := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(srv.ID())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(srv)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

func (s *A2AServers) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("host: invalid a2aServers JSON")
	}
	root := gjson.ParseBytes(data)
	if root.Type == gjson.Null {
		*s = nil
		return nil
	}
	if !root.IsObject() {
		return fmt.Errorf("host: a2aServers must be an object, got %s", root.Type)
	}

	servers := A2AServers{}
	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		var srv A2AServer
		if err = json.Unmarshal([]byte(value.Raw), &srv); err != nil {
			err = fmt.Errorf("host: a2a server %q: %w", key.String(), err)
			return false
		}
		srv.Key = key.String()
		servers = append(servers, srv)
		return true
	})
	if err != nil {
		return err
	}
	*s = servers
	return nil
}
