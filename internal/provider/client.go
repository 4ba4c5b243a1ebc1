package provider

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/zerosync-co/opencode-provider/internal/models"
	"github.com/zerosync-co/opencode-provider/internal/query"
	"github.com/zerosync-co/opencode-provider/pkg/host"
)

// Client is one credential's view of an opencode server. It keeps a single
// session for its lifetime.
type Client struct {
	baseURL  string
	model    string
	factory  Factory
	log      *slog.Logger
	queryLog *slog.Logger

	mu         sync.Mutex
	translator *query.Translator
}

var _ host.Client = (*Client)(nil)

func (c *Client) Query(ctx context.Context, req host.QueryRequest) iter.Seq2[host.Event, error] {
	return func(yield func(host.Event, error) bool) {
		tr, err := c.load()
		if err != nil {
			c.log.Error("failed to load opencode backend", "error", err)
			yield(host.Event{}, &query.Error{Op: query.OpConnect, Err: err})
			return
		}
		for ev, err := range tr.Query(ctx, req) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

func (c *Client) ListModels(context.Context) []string {
	return models.IDs()
}

func (c *Client) HealthCheck(ctx context.Context) bool {
	tr, err := c.load()
	if err != nil {
		c.log.Warn("health check could not load backend", "error", err)
		return false
	}
	res, err := tr.Backend().Health(ctx)
	if err != nil {
		c.log.Warn("health check failed", "error", err)
		return false
	}
	return res != nil && res.Healthy
}

// SessionID returns the client's session id, or "" before the first query.
func (c *Client) SessionID() string {
	c.mu.Lock()
	tr := c.translator
	c.mu.Unlock()
	if tr == nil {
		return ""
	}
	return tr.SessionID()
}

// load resolves the backend on first use. Failures are not cached.
func (c *Client) load() (*query.Translator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.translator != nil {
		return c.translator, nil
	}
	backend, err := c.factory(c.baseURL)
	if err != nil {
		return nil, &DependencyError{BaseURL: c.baseURL, Err: err}
	}
	c.translator = query.New(backend,
		query.WithDefaultModel(c.model),
		query.WithLogger(c.queryLog),
	)
	c.log.Debug("opencode backend loaded")
	return c.translator, nil
}
