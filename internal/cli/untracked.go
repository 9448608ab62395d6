package cli

import (
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

var untrackedCmd = &cobra.Command{
	Use:   "untracked <collection-id>",
	Short: "List media files that have not been imported",
	Args:  cobra.ExactArgs(1),
	RunE:  runUntracked,
}

var untrackedAll bool

func init() {
	untrackedCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Restrict to a collection-relative directory")
	untrackedCmd.Flags().BoolVar(&untrackedAll, "all-files", false, "Include files that are not media files")

	rootCmd.AddCommand(untrackedCmd)
}

func runUntracked(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx, stop := commandContext(cmd)
	defer stop()

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("untracked", err)
	}
	defer store.Close()

	res, err := engine.FindUntrackedFiles(ctx, *c, tracker.UntrackedOptions{
		Prefix:           prefixFlag,
		Exclude:          appConfig.ExcludePatterns,
		AllFiles:         untrackedAll,
		ProgressInterval: appConfig.GetProgressInterval(),
		OnProgress:       progressLogger("untracked search"),
	})
	if err != nil {
		return out.Fail("untracked", err)
	}
	if res.Completion == walker.Aborted {
		out.AddWarning(utils.WarnUntrackedAborted, "search aborted; the list is partial", utils.SeverityWarning)
	}
	return out.WriteSuccess("untracked", &types.UntrackedList{UntrackedResult: res})
}
