package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/store"
)

var (
	channelsStatuses []string
	channelsLimit    int
	channelsOffset   int
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List stored channel records as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		statuses := make([]model.ChannelStatus, 0, len(channelsStatuses))
		for _, s := range channelsStatuses {
			status := model.ChannelStatus(s)
			if !status.Valid() {
				return eris.Errorf("cmd: unknown channel status %q", s)
			}
			statuses = append(statuses, status)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListChannels(ctx, store.ListOpts{
			Statuses: statuses,
			Limit:    channelsLimit,
			Offset:   channelsOffset,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	channelsCmd.Flags().StringSliceVar(&channelsStatuses, "status", nil, "filter by status (repeatable)")
	channelsCmd.Flags().IntVar(&channelsLimit, "limit", 100, "maximum records to list")
	channelsCmd.Flags().IntVar(&channelsOffset, "offset", 0, "records to skip")

	rootCmd.AddCommand(channelsCmd)
}
