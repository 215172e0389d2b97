package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chromaflow/internal/app"
	"chromaflow/internal/csvio"
	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var encodingFlag string
	var sample bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a fabrication list CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := items.ParseImportMode(modeFlag)
			if err != nil {
				return err
			}
			parsed, err := readImport(ctx, args, encodingFlag, sample)
			if err != nil {
				return err
			}

			var result items.ImportResult
			err = ctx.applyAndSave(cmd.Context(), func(s app.State) (app.State, error) {
				s, result = app.Import(s, parsed, mode)
				return s, nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Mode {
			case items.ImportAppend:
				fmt.Fprintf(out, "Appended %d of %d items\n", result.Added, len(parsed))
				if len(result.Duplicates) > 0 {
					fmt.Fprintf(out, "Skipped duplicates: %s\n", strings.Join(result.Duplicates, ", "))
				}
			default:
				fmt.Fprintf(out, "Replaced %d items with %d imported items\n", result.Replaced, result.Added)
				if len(result.Duplicates) > 0 {
					fmt.Fprintf(out, "Dropped repeated rows for ids: %s\n", strings.Join(result.Duplicates, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modeFlag, "mode", "overwrite", "Import mode: overwrite or append")
	cmd.Flags().StringVar(&encodingFlag, "encoding", "", "Source encoding: auto, utf-8, utf-16, euc-kr (default csv.encoding)")
	cmd.Flags().BoolVar(&sample, "sample", false, "Import the built-in sample list instead of a file")
	return cmd
}

func readImport(ctx *commandContext, args []string, encodingFlag string, sample bool) ([]items.Item, error) {
	if sample {
		if len(args) > 0 {
			return nil, fmt.Errorf("--sample does not take a file")
		}
		return csvio.Parse(csvio.SampleCSV), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("import requires a file or --sample")
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	value := encodingFlag
	if value == "" {
		value = cfg.CSV.Encoding
	}
	enc, err := csvio.ParseEncoding(value)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("open import: %w", err)
	}
	defer file.Close()
	return csvio.ParseReader(file, enc)
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	var shopFlag string

	cmd := &cobra.Command{
		Use:   "advance <id>...",
		Short: "Move items to their next stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shop, err := workflow.ParseShop(shopFlag)
			if err != nil {
				return err
			}
			selection := items.NewIDSet(args...)

			var touched int
			err = ctx.applyAndSave(cmd.Context(), func(s app.State) (app.State, error) {
				if n := s.NeedsShop(selection); n > 0 && !shop.Assigned() {
					return s, fmt.Errorf("%d selected items are at a branch stage; pass --shop A-E", n)
				}
				s, touched = app.Advance(s, selection, shop, time.Now().UTC())
				return s, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Advanced %d items\n", touched)
			return nil
		},
	}
	cmd.Flags().StringVar(&shopFlag, "shop", "", "Shop for items leaving blasting or shop sorting")
	return cmd
}

func newSetStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var shopFlag string

	cmd := &cobra.Command{
		Use:   "set-status <id>...",
		Short: "Set items to a specific stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := workflow.ParseStatus(statusFlag)
			if err != nil {
				return err
			}
			shop, err := workflow.ParseShop(shopFlag)
			if err != nil {
				return err
			}

			var n int
			err = ctx.applyAndSave(cmd.Context(), func(s app.State) (app.State, error) {
				s, n = app.SetStatus(s, items.NewIDSet(args...), status, shop, time.Now().UTC())
				return s, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %d items to %s\n", n, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Target stage, for example painting or \"Awaiting Shipment\"")
	cmd.Flags().StringVar(&shopFlag, "shop", "", "Shop to assign; empty keeps each item's shop")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			err := ctx.applyAndSave(cmd.Context(), func(s app.State) (app.State, error) {
				s, n = app.Delete(s, items.NewIDSet(args...))
				return s, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items\n", n)
			return nil
		},
	}
}
