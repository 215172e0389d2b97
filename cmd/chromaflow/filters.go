package main

import (
	"github.com/spf13/cobra"

	"chromaflow/internal/query"
)

type filterFlags struct {
	showShipped bool
	shop        string
	status      string
	itemType    string
	material    string
	fp          string
	search      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.showShipped, "shipped", false, "Show the shipped archive instead of active items")
	cmd.Flags().StringVar(&f.shop, "shop", "", "Only items in this shop (A-E, none)")
	cmd.Flags().StringVar(&f.status, "status", "", "Only items at this status")
	cmd.Flags().StringVar(&f.itemType, "item", "", "Only this item type")
	cmd.Flags().StringVar(&f.material, "material", "", "Only this material")
	cmd.Flags().StringVar(&f.fp, "fp", "", "Only this FP value")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Case-insensitive search over id, item type and description")
}

func (f filterFlags) predicates() query.Predicates {
	return query.Predicates{
		ShowShipped: f.showShipped,
		Shop:        f.shop,
		Status:      f.status,
		ItemType:    f.itemType,
		Material:    f.material,
		FP:          f.fp,
		Search:      f.search,
	}
}
