package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/packdex/internal/snapshot"
)

var buildCmd = &cobra.Command{
	Use:   "build <output.db>",
	Short: "Index every pack and write the result to a SQLite snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := absPath(args[0])
		if err != nil {
			return err
		}
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		start := time.Now()
		fmt.Fprintf(out, "Building %s...\n", output)
		svc.Index.IndexFiles()
		snap := snapshot.Capture(svc.Index, svc.Cache)
		if err := snapshot.Write(output, snap); err != nil {
			return err
		}
		fmt.Fprintf(out, "Indexed %d assets from %d packs, %d collisions, %d cache entries in %v.\n",
			len(snap.Assets), len(snap.Packs), len(snap.Provenance), len(snap.Cache), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.db>",
	Short: "Print the summary of a snapshot written by build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.Read(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]any{
				"algorithm":  snap.Algorithm,
				"packs":      snap.Packs,
				"assets":     snap.Assets,
				"collisions": snap.Collisions(),
				"entities":   snap.Entities,
			})
		}
		fmt.Fprintf(out, "Algorithm: %s\n", snap.Algorithm)
		fmt.Fprintf(out, "Packs: %d\n", len(snap.Packs))
		for i, p := range snap.Packs {
			fmt.Fprintf(out, "  %d %s\n", i, p)
		}
		fmt.Fprintf(out, "Assets: %d\nEntities: %d\nGamemodes: %d\nCache entries: %d\n",
			len(snap.Assets), len(snap.Entities), len(snap.Patches), len(snap.Cache))
		for _, c := range snap.Collisions() {
			fmt.Fprintf(out, "Collision %s: %v\n", c.ID, c.Packs)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd, inspectCmd)
}
