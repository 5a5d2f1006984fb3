package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	trendingRegion     string
	trendingCategory   string
	trendingMax        int
	trendingCategories bool
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List trending videos (or video categories) for a region as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		yt, err := initYouTube()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if trendingCategories {
			cats, _, err := yt.VideoCategories(cmd.Context(), trendingRegion)
			if err != nil {
				return err
			}
			return enc.Encode(cats)
		}

		videos, _, err := yt.TrendingVideos(cmd.Context(), trendingRegion, trendingCategory, trendingMax)
		if err != nil {
			return err
		}
		return enc.Encode(videos)
	},
}

func init() {
	trendingCmd.Flags().StringVar(&trendingRegion, "region", "US", "ISO 3166-1 alpha-2 region code")
	trendingCmd.Flags().StringVar(&trendingCategory, "category", "", "numeric video category id")
	trendingCmd.Flags().IntVarP(&trendingMax, "max-results", "n", 25, "maximum videos to list")
	trendingCmd.Flags().BoolVar(&trendingCategories, "categories", false, "list assignable video categories instead")

	rootCmd.AddCommand(trendingCmd)
}
