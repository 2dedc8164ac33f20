package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/clipvault/clipvault/internal/types"

	"github.com/spf13/cobra"
)

var (
	listLimit   int
	listOffset  int
	listTrash   bool
	copyPlain   bool
	importMerge bool
)

func init() {
	historyCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum items to show")
	historyCmd.Flags().IntVar(&listOffset, "offset", 0, "items to skip")
	historyCmd.Flags().BoolVar(&listTrash, "trash", false, "show trashed items instead")
	searchCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum items to show")
	copyCmd.Flags().BoolVar(&copyPlain, "plain", false, "copy without rich-text formatting")
	importCmd.Flags().BoolVar(&importMerge, "merge", false, "merge into existing history instead of replacing it")
}

func printItems(items []*types.Item) {
	if len(items) == 0 {
		fmt.Println("No items.")
		return
	}
	for _, item := range items {
		marker := " "
		if item.Pinned {
			marker = "*"
		}
		fmt.Printf("%s %-36s  %-10s  %-19s  %s\n",
			marker,
			item.ID,
			item.Type,
			item.CreatedAt.Format("2006-01-02 15:04:05"),
			item.Preview())
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List clipboard history",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		var items []*types.Item
		if listTrash {
			items, err = coordinator.Trash(listLimit, listOffset)
		} else {
			items, err = coordinator.History(listLimit, listOffset)
		}
		if err != nil {
			return err
		}
		printItems(items)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search history by text or file path",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		items, err := coordinator.Search(strings.Join(args, " "), listLimit, 0)
		if err != nil {
			return err
		}
		printItems(items)
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <id>",
	Short: "Toggle an item's pinned flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		affected, err := coordinator.TogglePin(args[0])
		if err != nil {
			return err
		}
		if !affected {
			return fmt.Errorf("no item with id %s", args[0])
		}
		return nil
	},
}

var trashCmd = &cobra.Command{
	Use:   "trash <id>",
	Short: "Move an item to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		affected, err := coordinator.MoveToTrash(args[0])
		if err != nil {
			return err
		}
		if !affected {
			return fmt.Errorf("no item with id %s", args[0])
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore an item from the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		affected, err := coordinator.RestoreFromTrash(args[0])
		if err != nil {
			return err
		}
		if !affected {
			return fmt.Errorf("no item with id %s", args[0])
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Permanently delete items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		deleted, err := coordinator.DeleteItems(args)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d item(s).\n", deleted)
		return nil
	},
}

var emptyTrashCmd = &cobra.Command{
	Use:   "empty-trash",
	Short: "Permanently delete all trashed items",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		deleted, err := coordinator.EmptyTrash()
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d item(s).\n", deleted)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all non-pinned live items",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		deleted, err := coordinator.ClearHistory()
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d item(s).\n", deleted)
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <id>",
	Short: "Copy an item back to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(true)
		if err != nil {
			return err
		}
		defer closeStores()

		return coordinator.CopyToClipboard(args[0], !copyPlain)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export history as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return coordinator.Export(out)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import history from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()

		count, err := coordinator.Import(f, importMerge)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d item(s).\n", count)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store and blob statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinator, _, closeStores, err := openCoordinator(false)
		if err != nil {
			return err
		}
		defer closeStores()

		stats, err := coordinator.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Live items:    %d\n", stats.LiveItems)
		fmt.Printf("Pinned items:  %d\n", stats.PinnedItems)
		fmt.Printf("Trashed items: %d\n", stats.TrashedItems)
		if stats.Blobs != nil {
			fmt.Printf("Images:        %d\n", stats.Blobs.ImageCount)
			fmt.Printf("Thumbnails:    %d\n", stats.Blobs.ThumbnailCount)
			fmt.Printf("Blob bytes:    %d\n", stats.Blobs.TotalBytes)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clipvaultd %s (built %s)\n", Version, BuildTime)
	},
}
