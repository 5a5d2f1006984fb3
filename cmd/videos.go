package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var videosCmd = &cobra.Command{
	Use:   "videos ID [ID...]",
	Short: "Fetch details for up to 50 videos and print them as JSON",
	Args:  cobra.RangeArgs(1, 50),
	RunE: func(cmd *cobra.Command, args []string) error {
		yt, err := initYouTube()
		if err != nil {
			return err
		}

		videos, _, err := yt.VideoDetails(cmd.Context(), args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(videos)
	},
}

func init() {
	rootCmd.AddCommand(videosCmd)
}
