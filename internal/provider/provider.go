// Package provider adapts the host provider contract to an opencode server.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/zerosync-co/opencode-provider/internal/query"
	"github.com/zerosync-co/opencode-provider/pkg/client"
	"github.com/zerosync-co/opencode-provider/pkg/host"
)

const DefaultServerURL = "http://localhost:4096"

// Factory builds a backend for a server url.
type Factory func(baseURL string) (query.Backend, error)

const userAgent = "opencode-provider/1.0"

func defaultFactory(baseURL string) (query.Backend, error) {
	return client.New(baseURL, client.WithUserAgent(userAgent))
}

type Provider struct {
	factory Factory
	base    *slog.Logger
	log     *slog.Logger
}

var _ host.Provider = (*Provider)(nil)

type Option func(*Provider)

// WithLogger sets the logger component loggers are derived from. It should
// not carry a service attribute of its own.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.base = l
		}
	}
}

func WithFactory(f Factory) Option {
	return func(p *Provider) {
		if f != nil {
			p.factory = f
		}
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		factory: defaultFactory,
		base:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.base.With("service", "provider")
	return p
}

// ValidateCredentials probes the server's health endpoint. Failing to reach
// the server does not invalidate the credential; only an explicit unhealthy
// answer does.
func (p *Provider) ValidateCredentials(ctx context.Context, credential string) bool {
	backend, err := p.factory(serverURL(credential))
	if err != nil {
		p.log.Warn("credential validation could not load backend", "url", credential, "error", err)
		return true
	}
	res, err := backend.Health(ctx)
	if err != nil {
		p.log.Warn("credential validation failed", "url", credential, "error", err)
		return true
	}
	return res == nil || res.Healthy
}

// CreateClient returns a client bound to the server url. It does not touch
// the network.
func (p *Provider) CreateClient(credential string, opts host.ClientOptions) (host.Client, error) {
	baseURL := serverURL(credential)
	if err := checkURL(baseURL); err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  baseURL,
		model:    opts.Model,
		factory:  p.factory,
		log:      p.log.With("url", baseURL),
		queryLog: p.base.With("service", "query", "url", baseURL),
	}, nil
}

func (p *Provider) CredentialType() host.CredentialType {
	return host.CredentialCustom
}

func serverURL(credential string) string {
	if credential == "" {
		return DefaultServerURL
	}
	return credential
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidServerURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, raw)
	}
	return nil
}
