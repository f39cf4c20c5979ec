package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showCollisions bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the asset packs and print the identifier map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if jsonOutput {
			return printJSON(out, svc.Summary(showCollisions))
		}

		if err := svc.Index.Dump(out); err != nil {
			return err
		}
		if !showCollisions {
			return nil
		}
		sum := svc.Summary(true)
		fmt.Fprintf(out, "Collisions: %d\n", len(sum.Collisions))
		for _, c := range sum.Collisions {
			fmt.Fprintf(out, "  %s <- %s\n", c.ID, strings.Join(c.Packs, ", "))
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&showCollisions, "collisions", false, "Also list identifiers provided by more than one pack")
	rootCmd.AddCommand(indexCmd)
}
