package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <collection-id>",
	Short: "Drop orphaned directories and relink their moved tracks",
	Long: `Remove the records of orphaned directories. Media sources that lived in
them are relinked to an identical file found elsewhere in the collection so
ratings and play counts survive a rename; the rest are reported as dangling.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Restrict to a collection-relative directory")

	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("purge", err)
	}
	defer store.Close()

	summary, err := engine.PurgeOrphaned(ctx, c.ID, prefixFlag)
	if err != nil {
		return out.Fail("purge", err)
	}
	if summary.DanglingSources > 0 {
		out.AddWarning(utils.WarnDanglingSources,
			fmt.Sprintf("%d media sources have no file any more", summary.DanglingSources),
			utils.SeverityWarning)
	}
	return out.WriteSuccess("purge", &types.PurgeReport{PurgeSummary: summary})
}
