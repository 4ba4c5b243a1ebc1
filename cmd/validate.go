package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zerosync-co/opencode-provider/internal/logging"
	"golang.org/x/sync/errgroup"
)

func newValidateCmd(h *harness) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>...",
		Short: "Validate server urls as provider credentials",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer h.close()
			p, err := h.provider()
			if err != nil {
				return err
			}

			results := make([]bool, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, url := range args {
				g.Go(func() error {
					defer logging.RecoverPanic("validate", nil)
					results[i] = p.ValidateCredentials(ctx, url)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for i, url := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", url, results[i])
			}
			return nil
		},
	}
}
