package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/zerosync-co/opencode-provider/internal/config"
	"github.com/zerosync-co/opencode-provider/internal/logging"
	"github.com/zerosync-co/opencode-provider/pkg/host"
	"github.com/zerosync-co/opencode-provider/pkg/plugin"
)

// ExitCoder is implemented by errors that carry a process exit code.
type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

// SessionIDHandler tags records with the active session id when the record
// does not carry one already.
type SessionIDHandler struct {
	slog.Handler
	session *sessionSource
}

type sessionSource struct {
	mu sync.RWMutex
	fn func() string
}

func NewSessionIDHandler(h slog.Handler) *SessionIDHandler {
	return &SessionIDHandler{Handler: h, session: &sessionSource{}}
}

func (h *SessionIDHandler) Handle(ctx context.Context, r slog.Record) error {
	h.session.mu.RLock()
	fn := h.session.fn
	h.session.mu.RUnlock()
	if fn != nil {
		if id := fn(); id != "" && !hasAttr(r, "session_id") {
			r.AddAttrs(slog.String("session_id", id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *SessionIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionIDHandler{Handler: h.Handler.WithAttrs(attrs), session: h.session}
}

func (h *SessionIDHandler) WithGroup(name string) slog.Handler {
	return &SessionIDHandler{Handler: h.Handler.WithGroup(name), session: h.session}
}

// WithSession sets the function consulted for the active session id.
func (h *SessionIDHandler) WithSession(fn func() string) *SessionIDHandler {
	h.session.mu.Lock()
	h.session.fn = fn
	h.session.mu.Unlock()
	return h
}

func hasAttr(r slog.Record, key string) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}

// syncWriter is a thread-safe writer that prevents interleaved output
type syncWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (sw *syncWriter) Write(p []byte) (n int, err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

func newSyncWriter(w io.Writer) io.Writer {
	return &syncWriter{w: w}
}

// harness is the in-process host the commands drive the plugin through.
type harness struct {
	cfg      *config.Config
	logs     logging.Service
	handler  *SessionIDHandler
	registry *host.MemoryRegistry
	plugin   *plugin.Plugin
}

func (h *harness) provider() (host.Provider, error) {
	p, ok := h.registry.Provider(plugin.ID)
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", plugin.ID)
	}
	return p, nil
}

func (h *harness) newClient() (host.Client, error) {
	p, err := h.provider()
	if err != nil {
		return nil, err
	}
	c, err := p.CreateClient(h.cfg.ServerURL, host.ClientOptions{Model: h.cfg.Model})
	if err != nil {
		return nil, err
	}
	if s, ok := c.(interface{ SessionID() string }); ok {
		h.handler.WithSession(s.SessionID)
	}
	return c, nil
}

func (h *harness) close() {
	if h.plugin != nil {
		h.plugin.Shutdown()
	}
	if h.logs != nil {
		h.logs.Shutdown()
	}
}

func setupLogging(h *harness, verbose, debug bool, stderr io.Writer) {
	lvl := new(slog.LevelVar)
	if debug {
		lvl.Set(slog.LevelDebug)
	}
	h.logs = logging.NewService()
	var base slog.Handler = slog.NewTextHandler(logging.NewSlogWriter(h.logs), &slog.HandlerOptions{Level: lvl})

	if verbose {
		charmLogger := charmlog.NewWithOptions(newSyncWriter(stderr), charmlog.Options{
			Level:           charmlog.DebugLevel,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "opencode-provider",
		})
		if !debug {
			charmLogger.SetLevel(charmlog.InfoLevel)
		}
		base = charmLogger
	}
	h.handler = NewSessionIDHandler(base)
	slog.SetDefault(slog.New(h.handler))
}

func NewRootCmd() *cobra.Command {
	h := &harness{}
	var (
		debug     bool
		verbose   bool
		cwd       string
		serverURL string
		model     string
	)

	cmd := &cobra.Command{
		Use:   "opencode-provider",
		Short: "Drive the opencode provider plugin from the command line",
		Long: `opencode-provider loads the opencode provider plugin into an in-process host
and runs queries, health checks and credential validation against an opencode
server (start one with "opencode serve").`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			setupLogging(h, verbose, debug, cmd.ErrOrStderr())
			defer func() {
				if err != nil {
					h.close()
				}
			}()

			if cwd == "" {
				c, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get current working directory: %w", err)
				}
				cwd = c
			}
			cfg, err := config.Load(cwd, debug)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("server-url") {
				cfg.ServerURL = serverURL
			}
			if cmd.Flags().Changed("model") {
				cfg.Model = model
			}
			h.cfg = cfg

			h.registry = host.NewMemoryRegistry()
			h.plugin = plugin.New()
			return h.plugin.Init(&plugin.Context{Registry: h.registry, Logger: slog.Default()})
		},
	}
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Debug")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Display logs on stderr")
	cmd.PersistentFlags().StringVarP(&cwd, "cwd", "c", "", "Current working directory")
	cmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "opencode server url (default from config, then "+config.DefaultServerURL+")")
	cmd.PersistentFlags().StringVar(&model, "model", "", "Default model for queries")

	cmd.AddCommand(newQueryCmd(h))
	cmd.AddCommand(newModelsCmd(h))
	cmd.AddCommand(newHealthCmd(h))
	cmd.AddCommand(newValidateCmd(h))
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ex ExitCoder
		if errors.As(err, &ex) {
			stop()
			os.Exit(ex.ExitCode())
		}
		stop()
		os.Exit(1)
	}
}
