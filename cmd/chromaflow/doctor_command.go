package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chromaflow/internal/preflight"
	"chromaflow/internal/store"
	"chromaflow/internal/storeaccess"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the store, cache and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var remote store.Remote
			session, openErr := storeaccess.Open(cmd.Context(), cfg, ctx.commandLogger())
			if openErr == nil {
				defer session.Close()
				remote = session.Remote
			}
			results := preflight.RunAll(cmd.Context(), cfg, remote)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, result := range results {
				fmt.Fprintln(out, renderCheckLine(result, colorize))
			}
			if openErr != nil {
				fmt.Fprintf(out, "%s%s\n", statusIndent, openErr)
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				names := make([]string, len(failed))
				for i, r := range failed {
					names[i] = r.Name
				}
				return fmt.Errorf("%d checks failed: %s", len(failed), strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func renderCheckLine(result preflight.Result, colorize bool) string {
	label, color := "[OK]", ansiGreen
	if !result.Passed {
		label, color = "[ERROR]", ansiRed
	}
	base := fmt.Sprintf("%s%-*s %s %s", statusIndent, statusLabelWidth, result.Name+":", label, result.Detail)
	if colorize {
		return color + base + ansiReset
	}
	return base
}
