package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/pipeline"
)

var discoverOpts model.RunOptions

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery pass and print the ranked results as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		yt, err := initYouTube()
		if err != nil {
			return err
		}

		report, err := pipeline.New(st, yt, &cfg.Discovery).Run(ctx, discoverOpts)
		if err != nil {
			log.Error("discovery run failed", zap.Error(err))
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverOpts.Query, "query", "q", "", "topic query (required)")
	discoverCmd.Flags().StringVar((*string)(&discoverOpts.ChannelAgeBand), "age-band", string(model.AgeBandNew), "channel age band: NEW or ESTABLISHED")
	discoverCmd.Flags().StringVar((*string)(&discoverOpts.ConsistencyLevel), "consistency", string(model.ConsistencyModerate), "consistency level: MODERATE or HIGH")
	discoverCmd.Flags().StringVar((*string)(&discoverOpts.OutlierMagnitude), "magnitude", string(model.MagnitudeStandard), "outlier magnitude: STANDARD or STRONG")
	discoverCmd.Flags().StringVar(&discoverOpts.CategoryID, "category", "", "numeric video category id")
	discoverCmd.Flags().StringVar(&discoverOpts.RegionCode, "region", "", "ISO 3166-1 alpha-2 region code")
	discoverCmd.Flags().IntVarP(&discoverOpts.MaxResults, "max-results", "n", 0, "maximum ranked results (default 10)")
	_ = discoverCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(discoverCmd)
}
