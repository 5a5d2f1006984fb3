package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/store"
)

var (
	exportOut      string
	exportStatuses []string
)

var exportHeader = []string{
	"channel_id", "title", "status", "subscribers", "videos", "total_views",
	"standard_outliers", "standard_consistency_pct",
	"strong_outliers", "strong_consistency_pct",
	"analyzed_at",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analyzed channels to an .xlsx or .csv file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		statuses := make([]model.ChannelStatus, 0, len(exportStatuses))
		for _, s := range exportStatuses {
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

		records, err := st.ListChannels(ctx, store.ListOpts{Statuses: statuses})
		if err != nil {
			return err
		}

		switch filepath.Ext(exportOut) {
		case ".xlsx":
			err = exportXLSX(exportOut, records)
		case ".csv":
			err = exportCSV(exportOut, records)
		default:
			return eris.Errorf("cmd: unsupported export format %q (use .xlsx or .csv)", filepath.Ext(exportOut))
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("file", exportOut),
			zap.Int("channels", len(records)),
		)
		return nil
	},
}

func exportRow(rec model.ChannelRecord) []string {
	row := []string{
		rec.ChannelID,
		rec.Title,
		string(rec.Status),
		strconv.FormatInt(rec.LatestStats.SubscriberCount, 10),
		strconv.FormatInt(rec.LatestStats.VideoCount, 10),
		strconv.FormatInt(rec.LatestStats.ViewCount, 10),
	}
	if a := rec.LatestAnalysis; a != nil {
		std := a.Metrics[model.MagnitudeStandard]
		strong := a.Metrics[model.MagnitudeStrong]
		row = append(row,
			strconv.Itoa(std.OutlierVideoCount),
			strconv.FormatFloat(std.ConsistencyPercentage, 'f', 2, 64),
			strconv.Itoa(strong.OutlierVideoCount),
			strconv.FormatFloat(strong.ConsistencyPercentage, 'f', 2, 64),
			a.AnalyzedAt.Format("2006-01-02 15:04:05"),
		)
	} else {
		row = append(row, "", "", "", "", "")
	}
	return row
}

func exportXLSX(path string, records []model.ChannelRecord) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Channels")
	if err != nil {
		return eris.Wrap(err, "cmd: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().Value = h
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, v := range exportRow(rec) {
			row.AddCell().Value = v
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrap(err, "cmd: save xlsx")
	}
	return nil
}

func exportCSV(path string, records []model.ChannelRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "cmd: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return eris.Wrap(err, "cmd: write csv header")
	}
	for _, rec := range records {
		if err := w.Write(exportRow(rec)); err != nil {
			return eris.Wrap(err, "cmd: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "cmd: flush csv")
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "channels.xlsx", "output file (.xlsx or .csv)")
	exportCmd.Flags().StringSliceVar(&exportStatuses, "status", []string{
		string(model.StatusAnalyzedPromising),
		string(model.StatusAnalyzedPrimeCandidate),
		string(model.StatusAnalyzedMonitor),
	}, "statuses to export (repeatable)")

	rootCmd.AddCommand(exportCmd)
}
