// Package query turns a host query into an opencode session prompt and the
// backend's reply into the host's event stream.
package query

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/zerosync-co/opencode-provider/internal/models"
	"github.com/zerosync-co/opencode-provider/pkg/client"
	"github.com/zerosync-co/opencode-provider/pkg/host"
	"golang.org/x/sync/singleflight"
)

// Backend is the subset of the opencode API a translator needs.
type Backend interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
	CreateSession(ctx context.Context, params client.SessionCreateParams) (*client.Session, error)
	Prompt(ctx context.Context, sessionID string, params client.PromptParams) (*client.PromptResponse, error)
}

var _ Backend = (*client.Client)(nil)

// Translator owns one session on one backend. It is safe for concurrent use;
// concurrent first queries share a single session creation.
type Translator struct {
	backend Backend
	model   string
	log     *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	sessionID string
	flight    singleflight.Group
}

type Option func(*Translator)

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) Option {
	return func(t *Translator) {
		t.model = model
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Translator) {
		if now != nil {
			t.now = now
		}
	}
}

func New(backend Backend, opts ...Option) *Translator {
	t := &Translator{
		backend: backend,
		log:     slog.With("service", "query"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Backend returns the backend the translator prompts.
func (t *Translator) Backend() Backend { return t.backend }

// SessionID returns the session this translator prompts, or "" before the
// first query created one.
func (t *Translator) SessionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}

// Query runs one prompt. The returned sequence yields a system/init event if
// this call created the session, then one assistant event per reply part,
// then a result event. On failure it yields a single *Error and ends.
func (t *Translator) Query(ctx context.Context, req host.QueryRequest) iter.Seq2[host.Event, error] {
	return func(yield func(host.Event, error) bool) {
		if req.Resume != "" {
			t.log.Debug("resume is not supported, using the client session", "resume", req.Resume)
		}

		sessionID, created, err := t.acquireSession(ctx)
		if err != nil {
			t.log.Error("failed to create session", "error", err)
			yield(host.Event{}, &Error{Op: OpCreateSession, Err: err})
			return
		}
		if created && !yield(host.InitEvent(sessionID), nil) {
			return
		}

		params := t.promptParams(req)
		t.log.Debug("sending prompt",
			"session_id", sessionID,
			"provider", params.Model.ProviderID,
			"model", params.Model.ModelID,
			"tools", len(params.EnabledTools),
		)
		res, err := t.backend.Prompt(ctx, sessionID, params)
		if err != nil {
			t.log.Error("prompt failed", "session_id", sessionID, "error", err)
			yield(host.Event{}, &Error{Op: OpPrompt, Err: err})
			return
		}
		if res == nil {
			t.log.Warn("prompt returned no data", "session_id", sessionID)
			return
		}

		for _, p := range res.Parts {
			ev, ok := translatePart(sessionID, p)
			if !ok {
				t.log.Debug("skipping response part", "session_id", sessionID, "type", p.Type)
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
		yield(host.ResultEvent(sessionID, 0), nil)
	}
}

func (t *Translator) acquireSession(ctx context.Context) (id string, created bool, err error) {
	if id := t.SessionID(); id != "" {
		return id, false, nil
	}

	// fn runs on the goroutine of the caller that wins the flight, so only
	// that caller observes created. Other callers share its result, so the
	// create must not die with the winner's cancellation.
	v, err, _ := t.flight.Do("session", func() (any, error) {
		if id := t.SessionID(); id != "" {
			return id, nil
		}
		createCtx, cancel := detachCancel(ctx)
		defer cancel()

		title := "New Session - " + t.now().Format("2006-01-02 15:04:05")
		s, err := t.backend.CreateSession(createCtx, client.SessionCreateParams{Title: title})
		if err != nil {
			return "", err
		}
		if s == nil || s.ID == "" {
			return "", ErrSessionCreation
		}

		t.mu.Lock()
		t.sessionID = s.ID
		t.mu.Unlock()
		created = true
		t.log.Info("session created", "session_id", s.ID, "title", title)
		return s.ID, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), created, nil
}

// detachCancel keeps parent's values and deadline but not its cancellation.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

func (t *Translator) promptParams(req host.QueryRequest) client.PromptParams {
	model := models.Resolve(req.Model, t.model)
	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil || len(req.Tools) > 0 || len(req.ProviderOptions) > 0 {
		t.log.Debug("sampling, tool and provider options are not forwarded to opencode")
	}
	return client.PromptParams{
		Model: client.ModelRef{
			ProviderID: string(models.ResolveProvider(model)),
			ModelID:    model,
		},
		Parts:        []client.Part{{Type: client.PartText, Text: BuildPrompt(req.Prompt, req.Images)}},
		System:       req.SystemPrompt,
		EnabledTools: EnabledTools(req.A2AServers, req.AllowedTools),
	}
}
