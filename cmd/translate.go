package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate <locale> [key]",
	Short: "Look up a translated message, or list a locale's messages",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		svc.Index.IndexFiles()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			msgs := svc.Translations.Messages(args[0])
			if len(msgs) == 0 {
				return fmt.Errorf("no translations for locale %q (have %v)", args[0], svc.Translations.Locales())
			}
			return printJSON(out, msgs)
		}

		msg, ok := svc.Translations.Lookup(args[0], args[1])
		if !ok {
			return fmt.Errorf("no message %q for locale %q", args[1], args[0])
		}
		fmt.Fprintln(out, msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
}
