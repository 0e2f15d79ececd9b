package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/export"
	"github.com/pmackar/aireshark/internal/store"
)

var (
	exportOut    string
	exportLimit  int
	exportAlerts bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write acquisitions to an Excel workbook",
	Long:  "Writes recent acquisitions to an .xlsx workbook. With --alerts, writes the Google Alerts setup checklist instead (no store access).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportAlerts {
			if err := export.WriteAlertsChecklist(exportOut); err != nil {
				return err
			}
			zap.L().Info("alerts checklist written", zap.String("path", exportOut))
			return nil
		}

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		rows, err := st.ListAcquisitionRows(ctx, exportLimit)
		if err != nil {
			return err
		}

		if err := export.WriteAcquisitions(exportOut, rows); err != nil {
			return err
		}

		zap.L().Info("acquisitions exported",
			zap.String("path", exportOut),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "acquisitions.xlsx", "output workbook path")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max acquisitions to export (0 = store default)")
	exportCmd.Flags().BoolVar(&exportAlerts, "alerts", false, "write the Google Alerts setup checklist instead")
	rootCmd.AddCommand(exportCmd)
}
