package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	clierrors "github.com/dl-alexandre/medialib/internal/errors"
	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/source"
	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/index"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/types"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"collections"},
	Short:   "Manage media collections",
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <root>",
	Short: "Register a directory as a media collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionAdd,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List media collections",
	Args:  cobra.NoArgs,
	RunE:  runCollectionList,
}

var collectionRemoveCmd = &cobra.Command{
	Use:   "remove <collection-id>",
	Short: "Remove a collection and everything tracked for it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionRemove,
}

var (
	collectionTitle    string
	collectionID       string
	collectionExclude  []string
	collectionMaxDepth int
)

func init() {
	collectionAddCmd.Flags().StringVar(&collectionTitle, "title", "", "Display title (defaults to the directory name)")
	collectionAddCmd.Flags().StringVar(&collectionID, "id", "", "Optional collection ID")
	collectionAddCmd.Flags().StringSliceVar(&collectionExclude, "exclude", nil, "Exclude patterns (repeatable or comma-separated)")
	collectionAddCmd.Flags().IntVar(&collectionMaxDepth, "max-depth", -1, "Maximum directory depth, 0 for unlimited (default from config)")

	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionRemoveCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionAdd(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	root, err := filepath.Abs(args[0])
	if err != nil {
		return out.Invalid("collection.add", "%v", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return out.Fail("collection.add", fmt.Errorf("collection root: %w", err))
	}
	if !info.IsDir() {
		return out.Invalid("collection.add", "%s is not a directory", root)
	}
	resolver, err := source.NewResolver(root)
	if err != nil {
		return out.Fail("collection.add", err)
	}
	for _, p := range collectionExclude {
		if _, err := filepath.Match(p, ""); err != nil {
			return out.Invalid("collection.add", "invalid exclude pattern %q: %v", p, err)
		}
	}

	maxDepth := collectionMaxDepth
	if maxDepth < 0 {
		maxDepth = appConfig.MaxDepth
	}
	c := status.Collection{
		ID:              collectionID,
		Title:           collectionTitle,
		RootPath:        resolver.RootPath(),
		RootURL:         resolver.BaseURL(),
		ExcludePatterns: collectionExclude,
		MaxDepth:        maxDepth,
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Title == "" {
		c.Title = filepath.Base(root)
	}

	store, err := openIndex(ctx)
	if err != nil {
		return out.Fail("collection.add", err)
	}
	defer store.Close()

	if err := store.CreateCollection(ctx, c); err != nil {
		return out.Fail("collection.add", err)
	}
	logger.Info("collection added",
		logging.String("collection", c.ID),
		logging.String("root", c.RootPath))
	out.Log("Added collection %s (%s)", c.ID, c.RootPath)

	created, err := store.LoadCollection(ctx, c.ID)
	if err != nil {
		return out.Fail("collection.add", err)
	}
	return out.WriteSuccess("collection.add", types.CollectionList{*created})
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	store, err := openIndex(ctx)
	if err != nil {
		return out.Fail("collection.list", err)
	}
	defer store.Close()

	collections, err := store.ListCollections(ctx)
	if err != nil {
		return out.Fail("collection.list", err)
	}
	return out.WriteSuccess("collection.list", types.CollectionList(collections))
}

func runCollectionRemove(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx := cmd.Context()

	store, err := openIndex(ctx)
	if err != nil {
		return out.Fail("collection.remove", err)
	}
	defer store.Close()

	c, err := loadCollection(ctx, store, args[0])
	if err != nil {
		return out.Fail("collection.remove", err)
	}
	if err := store.DeleteCollection(ctx, c.ID); err != nil {
		return out.Fail("collection.remove", err)
	}
	out.Log("Removed collection %s", c.ID)
	return out.WriteSuccess("collection.remove", map[string]interface{}{
		"id":       c.ID,
		"rootPath": c.RootPath,
		"removed":  true,
	})
}

// loadCollection turns an unknown id into COLLECTION_NOT_FOUND.
func loadCollection(ctx context.Context, store status.CollectionStore, id string) (*status.Collection, error) {
	c, err := store.LoadCollection(ctx, id)
	if errors.Is(err, status.ErrNotFound) {
		return nil, clierrors.CollectionNotFound(id)
	}
	return c, err
}

// openEngine opens the index and loads the collection named by id.
func openEngine(ctx context.Context, id string) (*index.Store, *tracker.Engine, *status.Collection, error) {
	store, err := openIndex(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := loadCollection(ctx, store, id)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return store, tracker.NewEngine(store, logger), c, nil
}
