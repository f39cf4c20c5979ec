package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var entityInstance bool

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Inspect entity templates",
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entity ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		ids := svc.Entities.Available()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ids)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var entityGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an entity template as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		get := svc.Entities.Template
		if entityInstance {
			get = svc.Entities.Instance
		}
		v, err := get(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

func init() {
	entityGetCmd.Flags().BoolVar(&entityInstance, "instance", false, "Return a fresh copy instead of the shared template")
	entityCmd.AddCommand(entityListCmd, entityGetCmd)
	rootCmd.AddCommand(entityCmd)
}
