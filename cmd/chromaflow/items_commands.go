package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chromaflow/internal/csvio"
	"chromaflow/internal/items"
	"chromaflow/internal/query"
	"chromaflow/internal/syncbridge"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var filters filterFlags
	var sortKey string
	var descending bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sortCfg *query.SortConfig
			if sortKey != "" {
				direction := "asc"
				if descending {
					direction = "desc"
				}
				cfg, err := query.ParseSortConfig(sortKey, direction)
				if err != nil {
					return err
				}
				sortCfg = &cfg
			}

			state, source, err := ctx.load(cmd.Context())
			if err != nil {
				return err
			}
			list := query.Filter(state.Items(), filters.predicates())
			if sortCfg != nil {
				list = query.Sort(list, *sortCfg)
			}

			if asJSON {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			warnSource(cmd, source)
			if len(list) == 0 {
				fmt.Fprintln(out, "No items match")
				return nil
			}
			fmt.Fprintln(out, renderItems(list, shouldColorize(out)))
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort by status, item, id, length, weight, area or qty")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func renderItems(list []items.Item, colorize bool) string {
	spec := tableSpec{
		headers: []string{"NO", "ITEM", "ASSEMBLY", "MATERIAL", "LENGTH", "QTY", "WEIGHT", "AREA", "FP", "STATUS", "SHOP"},
		aligns: []columnAlignment{
			alignLeft, alignLeft, alignLeft, alignLeft,
			alignRight, alignRight, alignRight, alignRight,
			alignLeft, alignLeft, alignLeft,
		},
	}
	var weight float64
	for _, item := range list {
		weight += item.Weight
		shop := ""
		if item.Shop.Assigned() {
			shop = item.Shop.Letter()
		}
		spec.rows = append(spec.rows, []string{
			item.ID,
			item.ItemType,
			item.Assembly,
			item.Material,
			formatNumber(item.Length),
			formatNumber(item.Quantity),
			formatNumber(item.Weight),
			formatNumber(item.Area),
			item.FP,
			renderStatus(item.Status, colorize),
			shop,
		})
	}
	spec.footer = []string{strconv.Itoa(len(list)) + " items", "", "", "", "", "", formatNumber(weight)}
	return spec.render()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func warnSource(cmd *cobra.Command, source syncbridge.Source) {
	switch source {
	case syncbridge.SourceCache:
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: store unreachable, showing cached items")
	case syncbridge.SourceEmpty:
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: store unreachable and no cache available")
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var filters filterFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show item counts per stage for the filtered view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, source, err := ctx.load(cmd.Context())
			if err != nil {
				return err
			}
			stats := query.Stats(query.Filter(state.Items(), filters.predicates()))
			if asJSON {
				return writeJSON(cmd, stats)
			}
			warnSource(cmd, source)
			spec := tableSpec{
				headers: []string{"STAGE", "ITEMS"},
				aligns:  []columnAlignment{alignLeft, alignRight},
				rows: [][]string{
					{"Received", strconv.Itoa(stats.Received)},
					{"Blasting", strconv.Itoa(stats.Blasting)},
					{"Painting", strconv.Itoa(stats.Painting)},
					{"Packing", strconv.Itoa(stats.Packing)},
					{"Awaiting Shipment", strconv.Itoa(stats.Waiting)},
					{"Shipped", strconv.Itoa(stats.Shipped)},
				},
				footer: []string{"Total", strconv.Itoa(stats.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), spec.render())
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print counts as JSON")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every item as NO,ITEM,ASSEMBLY,STATUS,SHOP CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, source, err := ctx.load(cmd.Context())
			if err != nil {
				return err
			}
			warnSource(cmd, source)
			if len(args) == 0 || strings.TrimSpace(args[0]) == "-" {
				if err := csvio.Write(cmd.OutOrStdout(), state.Items()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}

			path := strings.TrimSpace(args[0])
			file, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create export: %w", err)
			}
			if err := csvio.Write(file, state.Items()); err != nil {
				file.Close()
				return fmt.Errorf("write export: %w", err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", len(state.Items()), path)
			return nil
		},
	}
}
