package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/api"
	"slidecast/internal/tts"
)

func newEnginesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List configured speech engines in dispatch order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engines := api.FromEngineDescriptors(tts.NewRegistry(cfg).List())
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"engines": engines})
			}
			if len(engines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No speech engines configured")
				return nil
			}

			rows := make([][]string, 0, len(engines))
			for _, engine := range engines {
				credential := "not required"
				if engine.RequiresCredential {
					credential = "missing"
					if engine.CredentialPresent {
						credential = "present"
					}
				}
				rows = append(rows, []string{
					engine.Name,
					fmt.Sprintf("%d", engine.Priority),
					yesNo(engine.Enabled),
					credential,
					engine.Detail,
				})
			}
			table := renderTable(
				[]string{"Engine", "Priority", "Enabled", "Credential", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
