package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zerosync-co/opencode-provider/internal/config"
	"github.com/zerosync-co/opencode-provider/internal/format"
	"github.com/zerosync-co/opencode-provider/internal/logging"
	"github.com/zerosync-co/opencode-provider/pkg/host"
)

type queryOptions struct {
	prompt       string
	images       []string
	allowedTools []string
	a2aConfig    string
	system       string
	outputFormat string
	showLogs     bool
}

func newQueryCmd(h *harness) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a single prompt through the provider",
		Long: `Run a single prompt through the provider and print the event stream.
The prompt is read from stdin when -p is not given and input is piped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer h.close()
			if opts.prompt == "" {
				if piped, ok := checkStdinPipe(); ok {
					opts.prompt = strings.TrimSpace(piped)
				}
			}
			if opts.prompt == "" {
				return fmt.Errorf("a prompt is required: use -p or pipe it on stdin")
			}
			return runQuery(cmd.Context(), h, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Prompt to send")
	cmd.Flags().StringArrayVar(&opts.images, "image", nil, "Image url shared with the prompt (repeatable)")
	cmd.Flags().StringSliceVar(&opts.allowedTools, "allowed-tools", nil, "Tools the backend may use (comma-separated list)")
	cmd.Flags().StringVar(&opts.a2aConfig, "a2a-config", "", "JSONC file with external tool server definitions")
	cmd.Flags().StringVar(&opts.system, "system", "", "System prompt")
	cmd.Flags().StringVarP(&opts.outputFormat, "output-format", "f", string(format.TextFormat), "Output format (text, json)")
	cmd.Flags().BoolVar(&opts.showLogs, "show-logs", false, "Print the session's logs to stderr when done")
	return cmd
}

func runQuery(ctx context.Context, h *harness, opts *queryOptions, stdout, stderr io.Writer) error {
	outputFormat, err := format.Parse(opts.outputFormat)
	if err != nil {
		return err
	}

	a2aPath := opts.a2aConfig
	if a2aPath == "" {
		a2aPath = h.cfg.A2AConfig
	}
	servers, err := config.LoadA2AServers(h.cfg.WorkingDir, a2aPath)
	if err != nil {
		return err
	}

	client, err := h.newClient()
	if err != nil {
		return err
	}

	slog.Info("running query", "format", outputFormat, "images", len(opts.images), "a2a_servers", len(servers))
	req := host.QueryRequest{
		Prompt:       opts.prompt,
		SystemPrompt: opts.system,
		Images:       opts.images,
		A2AServers:   servers,
		AllowedTools: opts.allowedTools,
	}

	if opts.showLogs {
		stop := streamSessionLogs(ctx, h, stderr)
		defer stop()
	}

	for ev, err := range client.Query(ctx, req) {
		if err != nil {
			return err
		}
		out, err := format.FormatEvent(ev, outputFormat)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		if out != "" {
			fmt.Fprintln(stdout, out)
		}
	}
	return nil
}

// streamSessionLogs prints session-tagged log records to w as they are
// logged. The harness runs one client, so every session id is the query's.
// stop ends the stream after flushing what was already published.
func streamSessionLogs(ctx context.Context, h *harness, w io.Writer) (stop func()) {
	subCtx, cancel := context.WithCancel(ctx)
	ch := h.logs.Subscribe(subCtx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer logging.RecoverPanic("show-logs", nil)
		for ev := range ch {
			l := ev.Payload
			if l.SessionID == "" {
				continue
			}
			fmt.Fprintf(w, "%s %-5s %s\n", l.Timestamp.Format("15:04:05.000"), strings.ToUpper(l.Level), l.Message)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// checkStdinPipe returns stdin's contents when it is a pipe or file rather
// than a terminal.
func checkStdinPipe() (string, bool) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", false
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return "", false
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, os.Stdin); err != nil {
		return "", false
	}
	if buf.Len() == 0 {
		return "", false
	}
	return buf.String(), true
}
