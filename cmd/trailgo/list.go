package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/trailgo/internal/media"
)

var (
	listType   string
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered media and trailer status",
	RunE:  runListCmd,
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by type: movie or series")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: missing, monitored, downloading, downloaded")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of rows")
	rootCmd.AddCommand(listCmd)
}

func runListCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	filter := media.Filter{Limit: listLimit}
	if listType != "" {
		t := media.Type(listType)
		filter.Type = &t
	}
	if listStatus != "" {
		s := media.Status(listStatus)
		filter.Status = &s
	}

	items, err := media.NewStore(db).List(filter)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if jsonOutput {
		printJSON(items)
		return nil
	}
	printItemsHuman(items)
	return nil
}

func printItemsHuman(items []*media.Item) {
	if len(items) == 0 {
		fmt.Println("No media registered")
		return
	}

	fmt.Printf("Media (%d):\n\n", len(items))
	fmt.Printf("  %4s │ %-35s │ %-6s │ %-11s │ %s\n", "ID", "TITLE", "TYPE", "STATUS", "TRAILER")
	fmt.Println("──────┼─────────────────────────────────────┼────────┼─────────────┼─────────")

	for _, it := range items {
		title := fmt.Sprintf("%s (%d)", it.Title, it.Year)
		if len(title) > 35 {
			title = title[:32] + "..."
		}
		trailer := "-"
		if it.TrailerExists {
			trailer = "yes"
		}
		fmt.Printf("  %4d │ %-35s │ %-6s │ %-11s │ %s\n", it.ID, title, it.Type, it.Status, trailer)
	}
}
