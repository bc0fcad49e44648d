package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/store"
)

var (
	exportOut      string
	exportTerminal string
	exportHours    float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export telemetry history to an XLSX workbook",
	Long:  "Writes the latest record per device to one sheet, plus the full report history of a single terminal when --terminal is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		file := xlsx.NewFile()

		latest, err := st.LatestPerDevice(ctx)
		if err != nil {
			return err
		}
		if err := addTelemetrySheet(file, "Latest", latest); err != nil {
			return err
		}

		if exportTerminal != "" {
			since := time.Now().UTC().Add(-time.Duration(exportHours * float64(time.Hour)))
			rows, _, err := st.History(ctx, store.HistoryFilter{
				DeviceID: exportTerminal,
				Since:    since,
				PerPage:  10000,
			})
			if err != nil {
				return err
			}
			if err := addTelemetrySheet(file, "History", rows); err != nil {
				return err
			}
		}

		if err := file.Save(exportOut); err != nil {
			return eris.Wrap(err, "export: save workbook")
		}
		zap.L().Info("export written",
			zap.String("path", exportOut),
			zap.Int("devices", len(latest)),
		)
		return nil
	},
}

func addTelemetrySheet(file *xlsx.File, name string, rows []store.TelemetryRow) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"timestamp", "sai", "device_id", "latitude", "longitude", "district", "state", "status"} {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Timestamp.Format(time.RFC3339))
		row.AddCell().SetInt(r.SAI)
		row.AddCell().SetString(r.DeviceID)
		row.AddCell().SetFloat(r.Latitude)
		row.AddCell().SetFloat(r.Longitude)
		row.AddCell().SetString(r.District)
		row.AddCell().SetString(r.State)
		row.AddCell().SetString(string(r.Status))
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "termtrack.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportTerminal, "terminal", "", "include full history for this device id")
	exportCmd.Flags().Float64Var(&exportHours, "hours", 24, "history lookback in hours")
	rootCmd.AddCommand(exportCmd)
}
