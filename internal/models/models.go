package models

import "strings"

type (
	ModelID       string
	ModelProvider string
)

type Model struct {
	ID       ModelID       `json:"id"`
	Name     string        `json:"name"`
	Provider ModelProvider `json:"provider"`
}

const (
	ProviderAnthropic ModelProvider = "anthropic"
	ProviderOpenAI    ModelProvider = "openai"
	ProviderGoogle    ModelProvider = "google"
)

const (
	Claude35Sonnet ModelID = "claude-3-5-sonnet"
	Claude35Haiku  ModelID = "claude-3-5-haiku"
	GPT4o          ModelID = "gpt-4o"
	GPT4oMini      ModelID = "gpt-4o-mini"

	DefaultModel = Claude35Sonnet
)

// SupportedModels is listed in the order the provider advertises them.
var SupportedModels = []Model{
	{ID: Claude35Sonnet, Name: "Claude 3.5 Sonnet", Provider: ProviderAnthropic},
	{ID: Claude35Haiku, Name: "Claude 3.5 Haiku", Provider: ProviderAnthropic},
	{ID: GPT4o, Name: "GPT-4o", Provider: ProviderOpenAI},
	{ID: GPT4oMini, Name: "GPT-4o mini", Provider: ProviderOpenAI},
}

// IDs returns the supported model ids as plain strings.
func IDs() []string {
	ids := make([]string, len(SupportedModels))
	for i, m := range SupportedModels {
		ids[i] = string(m.ID)
	}
	return ids
}

// ResolveProvider maps a model id to the vendor the backend should route it
// to. Unknown prefixes fall back to anthropic.
func ResolveProvider(id string) ModelProvider {
	switch {
	case strings.HasPrefix(id, "gpt-"),
		strings.HasPrefix(id, "o1"),
		strings.HasPrefix(id, "o3"):
		return ProviderOpenAI
	case strings.HasPrefix(id, "gemini-"):
		return ProviderGoogle
	default:
		return ProviderAnthropic
	}
}

// Resolve returns id unless it is empty, in which case the first non-empty
// fallback wins, then DefaultModel.
func Resolve(id string, fallbacks ...string) string {
	if id != "" {
		return id
	}
	for _, f := range fallbacks {
		if f != "" {
			return f
		}
	}
	return string(DefaultModel)
}
