package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
)

var importCmd = &cobra.Command{
	Use:   "import <collection-id>",
	Short: "Import pending directories and confirm them",
	Long: `Read every added or modified directory, register its media files and
confirm the directory with the digest recorded by the last sweep. A directory
that changed after that sweep is left pending for the next one.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <collection-id> <path> <digest>",
	Short: "Confirm a directory as imported at the given digest",
	Args:  cobra.ExactArgs(3),
	RunE:  runConfirm,
}

func init() {
	importCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Restrict to a collection-relative directory")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(confirmCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx, stop := commandContext(cmd)
	defer stop()

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("import", err)
	}
	defer store.Close()

	summary, err := engine.ImportPending(ctx, *c, tracker.ImportOptions{
		Prefix:   prefixFlag,
		PageSize: appConfig.PageSize,
	})
	if err != nil {
		return out.Fail("import", err)
	}
	if summary.Rejected > 0 {
		out.AddWarning(utils.WarnImportRejected,
			fmt.Sprintf("%d directories changed during import; sweep again to pick them up", summary.Rejected),
			utils.SeverityInfo)
	}
	return out.WriteSuccess("import", &types.ImportReport{ImportSummary: summary})
}

func runConfirm(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	digest, err := status.ParseDigest(args[2])
	if err != nil {
		return out.Invalid("confirm", "%v", err)
	}
	dirPath, err := status.NormalizeDirPath(args[1])
	if err != nil {
		return out.Fail("confirm", err)
	}

	store, engine, c, err := openEngine(ctx, args[0])
	if err != nil {
		return out.Fail("confirm", err)
	}
	defer store.Close()

	ok, err := engine.Confirm(ctx, c.ID, dirPath, digest)
	if err != nil {
		return out.Fail("confirm", err)
	}
	if !ok {
		out.AddWarning(utils.WarnConfirmRejected,
			"the directory is not pending at this digest; it changed since the sweep or was already confirmed",
			utils.SeverityWarning)
	}
	return out.WriteSuccess("confirm", &types.ConfirmResult{
		CollectionID: c.ID,
		Path:         dirPath,
		Digest:       digest.String(),
		Confirmed:    ok,
	})
}
