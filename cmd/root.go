package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/channel-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "channel-scout",
	Short: "Outlier channel discovery pipeline",
	Long:  "Discovers, filters, and ranks channels with consistently above-expectation video performance relative to subscriber size, within a topic, age band, and recency window.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
