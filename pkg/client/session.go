package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type Session struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type SessionCreateParams struct {
	Title string
}

// CreateSession creates a session. A response without data returns an empty
// Session; callers decide whether a missing id is fatal.
func (c *Client) CreateSession(ctx context.Context, params SessionCreateParams) (*Session, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "title", params.Title)
	if err != nil {
		return nil, fmt.Errorf("client: encode session: %w", err)
	}
	res, err := c.do(ctx, http.MethodPost, "session", body)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &Session{}, nil
	}
	return &Session{
		ID:    res.Get("id").String(),
		Title: res.Get("title").String(),
	}, nil
}

type PartType string

const (
	PartText     PartType = "text"
	PartToolUse  PartType = "tool_use"
	PartToolCall PartType = "tool_call"
)

type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
	Name string   `json:"name,omitempty"`
}

type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

type PromptParams struct {
	Model        ModelRef
	Parts        []Part
	System       string
	EnabledTools []string
}

type PromptResponse struct {
	Parts []Part
}

// Prompt sends a message to a session and waits for the full reply. A nil
// response with a nil error means the server returned no data.
func (c *Client) Prompt(ctx context.Context, sessionID string, params PromptParams) (*PromptResponse, error) {
	if sessionID == "" {
		return nil, errors.New("client: missing required session id")
	}
	body, err := encodePrompt(params)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, http.MethodPost, "session/"+url.PathEscape(sessionID)+"/message", body)
	if err != nil || res == nil {
		return nil, err
	}
	return &PromptResponse{Parts: decodeParts(res.Get("parts"))}, nil
}

func encodePrompt(params PromptParams) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}

	set("model.providerID", params.Model.ProviderID)
	set("model.modelID", params.Model.ModelID)
	parts := params.Parts
	if parts == nil {
		parts = []Part{}
	}
	set("parts", parts)
	if params.System != "" {
		set("system", params.System)
	}
	if len(params.EnabledTools) > 0 {
		set("enabledTools", params.EnabledTools)
	}
	if err != nil {
		return nil, fmt.Errorf("client: encode prompt: %w", err)
	}
	return body, nil
}

func decodeParts(raw gjson.Result) []Part {
	if !raw.IsArray() {
		return nil
	}
	var parts []Part
	raw.ForEach(func(_, p gjson.Result) bool {
		part := Part{
			Type: PartType(p.Get("type").String()),
			Text: p.Get("text").String(),
			Name: p.Get("name").String(),
		}
		if part.Name == "" {
			part.Name = p.Get("tool").String()
		}
		parts = append(parts, part)
		return true
	})
	return parts
}
