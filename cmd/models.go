package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zerosync-co/opencode-provider/internal/format"
	"github.com/zerosync-co/opencode-provider/internal/models"
)

type modelEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

func newModelsCmd(h *harness) *cobra.Command {
	var outputFormat string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer h.close()
			f, err := format.Parse(outputFormat)
			if err != nil {
				return err
			}
			client, err := h.newClient()
			if err != nil {
				return err
			}

			ids := client.ListModels(cmd.Context())
			entries := make([]modelEntry, len(ids))
			for i, id := range ids {
				entries[i] = modelEntry{ID: id, Provider: string(models.ResolveProvider(id))}
			}

			if f == format.JSONFormat {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.ID, e.Provider)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", string(format.TextFormat), "Output format (text, json)")
	return cmd
}
