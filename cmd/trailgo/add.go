package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/trailgo/internal/media"
)

var (
	addType      string
	addYear      int
	addFolder    string
	addProfile   string
	addYouTubeID string
	addMonitored bool
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Register a movie or series for trailer acquisition",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddCmd,
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "movie", "Media type: movie or series")
	addCmd.Flags().IntVar(&addYear, "year", 0, "Release year")
	addCmd.Flags().StringVar(&addFolder, "folder", "", "Absolute path to the media folder")
	addCmd.Flags().StringVar(&addProfile, "profile", "", "Download profile (default: configured default)")
	addCmd.Flags().StringVar(&addYouTubeID, "youtube-id", "", "Known trailer video ID, skips searching")
	addCmd.Flags().BoolVar(&addMonitored, "monitored", false, "Keep re-acquiring when the trailer goes missing")
	_ = addCmd.MarkFlagRequired("year")
	_ = addCmd.MarkFlagRequired("folder")
	rootCmd.AddCommand(addCmd)
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	mediaType := media.Type(addType)
	if mediaType != media.TypeMovie && mediaType != media.TypeSeries {
		return fmt.Errorf("invalid type %q: must be movie or series", addType)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := cfg.Profile(addProfile); err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status := media.StatusMissing
	if addMonitored {
		status = media.StatusMonitored
	}
	item := &media.Item{
		Type:       mediaType,
		Title:      args[0],
		Year:       addYear,
		FolderPath: addFolder,
		YouTubeID:  addYouTubeID,
		Profile:    addProfile,
		Status:     status,
	}
	if err := media.NewStore(db).Add(item); err != nil {
		return fmt.Errorf("add %q: %w", args[0], err)
	}

	if jsonOutput {
		printJSON(item)
		return nil
	}
	fmt.Printf("Added #%d %s (%d) [%s]\n", item.ID, item.Title, item.Year, item.Status)
	return nil
}
