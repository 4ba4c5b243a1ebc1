// Package host declares the provider contract an orchestration host expects
// from a model-provider plugin, and the event stream it consumes.
package host

import (
	"context"
	"iter"
)

// CredentialType tells the host how to collect and store a credential.
type CredentialType string

const (
	CredentialAPIKey CredentialType = "api_key"
	CredentialOAuth  CredentialType = "oauth"
	// CredentialCustom is an opaque value the provider interprets itself,
	// for example a server URL.
	CredentialCustom CredentialType = "custom"
)

// Provider is registered with the host once per plugin.
type Provider interface {
	ValidateCredentials(ctx context.Context, credential string) bool
	CreateClient(credential string, opts ClientOptions) (Client, error)
	CredentialType() CredentialType
}

// ClientOptions carries the host-side configuration for one credential.
type ClientOptions struct {
	Model string `json:"model,omitempty"`
}

// Client is bound to a single credential.
//
// Query returns a lazily evaluated sequence: no work happens until the caller
// ranges over it, and each event is produced only when the caller asks for
// the next one. A non-nil error is always the last element.
type Client interface {
	Query(ctx context.Context, req QueryRequest) iter.Seq2[Event, error]
	ListModels(ctx context.Context) []string
	HealthCheck(ctx context.Context) bool
}

// Unregister reverses a registration.
type Unregister func() error

// Registry is the part of the host a plugin registers capabilities with.
type Registry interface {
	RegisterProvider(id string, p Provider) (Unregister, error)
	RegisterConfigSchema(id string, schema ConfigSchema) (Unregister, error)
}
