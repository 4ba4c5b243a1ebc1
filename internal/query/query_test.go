package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerosync-co/opencode-provider/pkg/client"
	"github.com/zerosync-co/opencode-provider/pkg/host"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu       sync.Mutex
	creates  atomic.Int32
	prompts  []client.PromptParams
	titles   []string
	session  *client.Session
	create   error
	response *client.PromptResponse
	prompt   error
	gate     chan struct{}
}

func (f *fakeBackend) Health(context.Context) (*client.HealthResponse, error) {
	return &client.HealthResponse{Healthy: true}, nil
}

func (f *fakeBackend) CreateSession(ctx context.Context, params client.SessionCreateParams) (*client.Session, error) {
	f.creates.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.titles = append(f.titles, params.Title)
	f.mu.Unlock()
	return f.session, f.create
}

func (f *fakeBackend) Prompt(_ context.Context, _ string, params client.PromptParams) (*client.PromptResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, params)
	return f.response, f.prompt
}

func collect(t *testing.T, tr *Translator, req host.QueryRequest) ([]host.Event, error) {
	t.Helper()
	var events []host.Event
	for ev, err := range tr.Query(context.Background(), req) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prompt string
		images []string
		want   string
	}{
		{"no images", "hello", nil, "hello"},
		{"one image", "describe", []string{"https://x/a.png"}, "[User has shared 1 image(s)]\n[Image 1]: https://x/a.png\n\ndescribe"},
		{
			"two images keep order", "compare", []string{"u1", "u2"},
			"[User has shared 2 image(s)]\n[Image 1]: u1\n[Image 2]: u2\n\ncompare",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BuildPrompt(tt.prompt, tt.images))
		})
	}
}

func TestEnabledTools(t *testing.T) {
	t.Parallel()

	servers := host.A2AServers{
		{Key: "fs", Name: "Filesystem", Tools: []mcp.Tool{{Name: "read"}, {Name: "write"}}},
		{Name: "web", Tools: []mcp.Tool{{Name: "fetch"}}},
	}
	got := EnabledTools(servers, []string{"bash", "mcp__fs__read"})
	assert.Equal(t, []string{"mcp__fs__read", "mcp__fs__write", "mcp__web__fetch", "bash", "mcp__fs__read"}, got)
	assert.Empty(t, EnabledTools(nil, nil))
}

func TestTranslateParts(t *testing.T) {
	t.Parallel()

	events := TranslateParts("s1", []client.Part{
		{Type: client.PartText, Text: "hi"},
		{Type: "step-start"},
		{Type: client.PartToolCall, Name: "bash"},
		{Type: client.PartToolUse, Name: "edit"},
	})
	require.Len(t, events, 3)
	assert.Equal(t, host.TextEvent("s1", "hi"), events[0])
	assert.Equal(t, host.ToolUseEvent("s1", "bash"), events[1])
	assert.Equal(t, host.ToolUseEvent("s1", "edit"), events[2])
}

func TestQueryFirstCallCreatesSession(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		session: &client.Session{ID: "ses_1"},
		response: &client.PromptResponse{Parts: []client.Part{
			{Type: client.PartText, Text: "Hello"},
			{Type: client.PartToolUse, Name: "read"},
		}},
	}
	clock := func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) }
	tr := New(b, WithClock(clock))

	events, err := collect(t, tr, host.QueryRequest{Prompt: "hi"})
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, host.InitEvent("ses_1"), events[0])
	assert.Equal(t, host.TextEvent("ses_1", "Hello"), events[1])
	assert.Equal(t, host.ToolUseEvent("ses_1", "read"), events[2])
	assert.Equal(t, host.ResultEvent("ses_1", 0), events[3])
	assert.Equal(t, []string{"New Session - 2025-06-01 09:30:00"}, b.titles)
	assert.Equal(t, "ses_1", tr.SessionID())

	events, err = collect(t, tr, host.QueryRequest{Prompt: "again"})
	require.NoError(t, err)
	assert.Equal(t, host.EventAssistant, events[0].Type)
	assert.Equal(t, int32(1), b.creates.Load())
	assert.Len(t, b.prompts, 2)
}

func TestQueryPromptParams(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{session: &client.Session{ID: "s"}, response: &client.PromptResponse{}}

	t.Run("request model wins", func(t *testing.T) {
		tr := New(b, WithDefaultModel("gpt-4o"))
		_, err := collect(t, tr, host.QueryRequest{
			Prompt:       "p",
			Model:        "gemini-1.5-pro",
			SystemPrompt: "be brief",
			Images:       []string{"u1"},
			AllowedTools: []string{"bash"},
		})
		require.NoError(t, err)

		b.mu.Lock()
		got := b.prompts[len(b.prompts)-1]
		b.mu.Unlock()
		assert.Equal(t, client.ModelRef{ProviderID: "google", ModelID: "gemini-1.5-pro"}, got.Model)
		assert.Equal(t, "be brief", got.System)
		assert.Equal(t, []string{"bash"}, got.EnabledTools)
		require.Len(t, got.Parts, 1)
		assert.Equal(t, "[User has shared 1 image(s)]\n[Image 1]: u1\n\np", got.Parts[0].Text)
	})

	t.Run("client default then built-in default", func(t *testing.T) {
		_, err := collect(t, New(b, WithDefaultModel("gpt-4o")), host.QueryRequest{Prompt: "p"})
		require.NoError(t, err)
		_, err = collect(t, New(b), host.QueryRequest{Prompt: "p"})
		require.NoError(t, err)

		b.mu.Lock()
		n := len(b.prompts)
		first, second := b.prompts[n-2], b.prompts[n-1]
		b.mu.Unlock()
		assert.Equal(t, client.ModelRef{ProviderID: "openai", ModelID: "gpt-4o"}, first.Model)
		assert.Equal(t, client.ModelRef{ProviderID: "anthropic", ModelID: "claude-3-5-sonnet"}, second.Model)
	})
}

func TestQueryConcurrentFirstCallsCreateOnce(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		session:  &client.Session{ID: "shared"},
		response: &client.PromptResponse{Parts: []client.Part{{Type: client.PartText, Text: "ok"}}},
		gate:     make(chan struct{}),
	}
	tr := New(b)

	const n = 8
	var (
		wg    sync.WaitGroup
		inits atomic.Int32
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := collect(t, tr, host.QueryRequest{Prompt: "x"})
			assert.NoError(t, err)
			for _, ev := range events {
				assert.Equal(t, "shared", ev.SessionID)
				if ev.Type == host.EventSystem {
					inits.Add(1)
				}
			}
		}()
	}
	require.Eventually(t, func() bool { return b.creates.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Equal(t, int32(1), b.creates.Load())
	assert.Equal(t, int32(1), inits.Load())
}

func TestQueryCancelledCreatorDoesNotFailWaiters(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		session:  &client.Session{ID: "survivor"},
		response: &client.PromptResponse{Parts: []client.Part{{Type: client.PartText, Text: "ok"}}},
		gate:     make(chan struct{}),
	}
	tr := New(b)

	creatorCtx, cancelCreator := context.WithCancel(context.Background())
	creatorDone := make(chan struct{})
	go func() {
		defer close(creatorDone)
		for range tr.Query(creatorCtx, host.QueryRequest{Prompt: "first"}) {
		}
	}()
	require.Eventually(t, func() bool { return b.creates.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		events []host.Event
		err    error
	}
	waiter := make(chan result, 1)
	go func() {
		events, err := collect(t, tr, host.QueryRequest{Prompt: "second"})
		waiter <- result{events, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelCreator()
	time.Sleep(20 * time.Millisecond)
	close(b.gate)

	select {
	case res := <-waiter:
		require.NoError(t, res.err)
		require.NotEmpty(t, res.events)
		for _, ev := range res.events {
			assert.Equal(t, "survivor", ev.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting query did not finish")
	}
	<-creatorDone
	assert.Equal(t, "survivor", tr.SessionID())
	assert.Equal(t, int32(1), b.creates.Load())
}

func TestQueryStopAfterInitSendsNoPrompt(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{session: &client.Session{ID: "s"}, response: &client.PromptResponse{}}
	tr := New(b)

	for ev := range tr.Query(context.Background(), host.QueryRequest{Prompt: "p"}) {
		assert.Equal(t, host.EventSystem, ev.Type)
		break
	}
	assert.Empty(t, b.prompts)
	assert.Equal(t, "s", tr.SessionID())
}

func TestQueryFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name    string
		backend *fakeBackend
		op      string
		target  error
		events  int
	}{
		{"create fails", &fakeBackend{create: boom}, OpCreateSession, boom, 0},
		{"create returns no id", &fakeBackend{session: &client.Session{}}, OpCreateSession, ErrSessionCreation, 0},
		{"create returns nothing", &fakeBackend{}, OpCreateSession, ErrSessionCreation, 0},
		{"prompt fails after init", &fakeBackend{session: &client.Session{ID: "s"}, prompt: boom}, OpPrompt, boom, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := New(tt.backend)
			events, err := collect(t, tr, host.QueryRequest{Prompt: "p"})

			var qerr *Error
			require.ErrorAs(t, err, &qerr)
			assert.Equal(t, tt.op, qerr.Op)
			assert.ErrorIs(t, err, tt.target)
			assert.Contains(t, err.Error(), "opencode query failed")
			assert.Len(t, events, tt.events)
			for _, ev := range events {
				assert.NotEqual(t, host.EventResult, ev.Type)
			}
		})
	}
}

func TestQueryFailedCreateIsRetried(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{create: errors.New("down")}
	tr := New(b)
	_, err := collect(t, tr, host.QueryRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Empty(t, tr.SessionID())

	b.create = nil
	b.session = &client.Session{ID: "later"}
	b.response = &client.PromptResponse{}
	events, err := collect(t, tr, host.QueryRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, host.InitEvent("later"), events[0])
	assert.Equal(t, int32(2), b.creates.Load())
}

func TestQueryNoResponseData(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{session: &client.Session{ID: "s"}}
	events, err := collect(t, New(b), host.QueryRequest{Prompt: "p"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, host.InitEvent("s"), events[0])
}
