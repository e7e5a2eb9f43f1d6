package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

func newCategoriesCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Print the category tree with product counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg, err := root.openRegistry(ctx)
			if err != nil {
				return err
			}
			defer reg.Close(ctx)

			svc, err := services.NewCatalogService(services.CatalogServiceDeps{
				Products: reg.Products(),
				Logger:   root.eventLogger("catalog"),
			})
			if err != nil {
				return err
			}
			tree, err := svc.Categories(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tree)
			}
			if len(tree.Roots) == 0 {
				fmt.Fprintln(out, "no categories")
				return nil
			}
			printCategories(out, tree.Roots)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the tree as JSON")
	return cmd
}

func printCategories(w io.Writer, nodes []*catalog.CategoryNode) {
	for _, node := range nodes {
		fmt.Fprintf(w, "%s%s (%d)  %s\n", strings.Repeat("  ", node.Depth), node.Name, node.ProductCount, node.Path)
		printCategories(w, node.Children)
	}
}
