package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/tracker/walker"
	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <collection-id>",
	Short: "Walk a collection and record which directories changed",
	Long: `Walk a collection and compare the digest of every directory with the
recorded one. New directories become added, changed ones modified, and
directories that were not found again become orphaned.

An interrupted sweep never orphans anything; run it again to finish.`,
	Args: cobra.ExactArgs(1),
	RunE: runSweep,
}

var statusCmd = &cobra.Command{
	Use:   "status <collection-id>",
	Short: "Show directory counts per tracking status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var pendingCmd = &cobra.Command{
	Use:   "pending <collection-id>",
	Short: "List directories waiting to be imported",
	Args:  cobra.ExactArgs(1),
	RunE:  runPending,
}

var (
	prefixFlag    string
	sweepExclude  []string
	sweepMaxDepth int
	pendingLimit  int
	pendingOffset int
)

func init() {
	sweepCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Restrict to a collection-relative directory")
	sweepCmd.Flags().StringSliceVar(&sweepExclude, "exclude", nil, "Additional exclude patterns for this sweep")
	sweepCmd.Flags().IntVar(&sweepMaxDepth, "max-depth", 0, "Override the collection's depth bound")

	statusCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Restrict to a collection-relative directory")

	pendingCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Restrict to a collection-relative directory")
	pendingCmd.Flags().IntVar(&pendingLimit, "limit", 0, "Maximum number of directories (default from config)")
	pendingCmd.Flags().IntVar(&pendingOffset, "offset", 0, "Number of directories to skip")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pendingCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx, stop := commandContext(cmd)
	defer stop()

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("sweep", err)
	}
	defer store.Close()

	res, err := engine.Sweep(ctx, *c, tracker.SweepOptions{
		Prefix:           prefixFlag,
		Exclude:          append(append([]string{}, appConfig.ExcludePatterns...), sweepExclude...),
		MaxDepth:         sweepMaxDepth,
		ProgressInterval: appConfig.GetProgressInterval(),
		OnProgress:       progressLogger("sweep"),
	})
	if err != nil {
		return out.Fail("sweep", err)
	}

	// The walk may have ended because ctx was cancelled; the report still needs the counts.
	reportCtx := context.WithoutCancel(ctx)
	if res.Completion == walker.Finished && res.Prefix == "" {
		if err := store.TouchLastSweep(reportCtx, c.ID, res.Finished); err != nil {
			logger.Warn("failed to record sweep time", logging.Err(err))
		}
	}
	st, err := engine.DirectoriesStatus(reportCtx, c.ID, res.Prefix)
	if err != nil {
		return out.Fail("sweep", err)
	}

	addSweepWarnings(out, res)
	return out.WriteSuccess("sweep", &types.SweepReport{SweepResult: res, Status: st})
}

func addSweepWarnings(out *OutputWriter, res tracker.SweepResult) {
	if res.Completion == walker.Aborted {
		out.AddWarning(utils.WarnSweepIncomplete,
			fmt.Sprintf("sweep aborted after %s directories; nothing was orphaned", humanize.Comma(int64(res.Progress.DirectoriesFinished))),
			utils.SeverityWarning)
	} else if res.Summary.Skipped > 0 {
		out.AddWarning(utils.WarnSweepIncomplete,
			fmt.Sprintf("%d entries could not be read and are retried by the next sweep", res.Summary.Skipped),
			utils.SeverityWarning)
	}
	if res.Summary.Rejected > 0 {
		out.AddWarning(utils.WarnSweepRejected,
			fmt.Sprintf("%d directories changed concurrently and are retried by the next sweep", res.Summary.Rejected),
			utils.SeverityInfo)
	}
}

// progressLogger reports walk progress through the command logger.
func progressLogger(operation string) func(walker.Progress) {
	return func(p walker.Progress) {
		if p.Status == walker.Done {
			return
		}
		logger.Info(operation+" in progress",
			logging.String("directories", humanize.Comma(int64(p.DirectoriesFinished))),
			logging.String("entries", humanize.Comma(int64(p.EntriesFinished))),
			logging.Uint64("skipped", p.EntriesSkipped),
			logging.Duration("elapsed", p.Elapsed))
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("status", err)
	}
	defer store.Close()

	st, err := engine.DirectoriesStatus(ctx, c.ID, prefixFlag)
	if err != nil {
		return out.Fail("status", err)
	}
	prefix, _ := status.NormalizePrefix(prefixFlag)
	return out.WriteSuccess("status", types.NewStatusReport(c.ID, prefix, st))
}

func runPending(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	if pendingLimit < 0 || pendingOffset < 0 {
		return out.Invalid("pending", "--limit and --offset must be non-negative")
	}
	limit := pendingLimit
	if limit == 0 {
		limit = appConfig.PageSize
	}

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("pending", err)
	}
	defer store.Close()

	dirs, err := engine.PendingDirectories(ctx, c.ID, prefixFlag, status.Pagination{Limit: limit, Offset: pendingOffset})
	if err != nil {
		return out.Fail("pending", err)
	}
	return out.WriteSuccess("pending", types.DirectoryList(dirs))
}
