package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(h *harness) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured opencode server is healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer h.close()
			client, err := h.newClient()
			if err != nil {
				return err
			}
			if !client.HealthCheck(cmd.Context()) {
				return &exitError{code: 1, msg: fmt.Sprintf("opencode server at %s is unhealthy", h.cfg.ServerURL)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opencode server at %s is healthy\n", h.cfg.ServerURL)
			return nil
		},
	}
}
