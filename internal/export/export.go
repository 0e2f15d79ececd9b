// Package export writes tracking data to Excel workbooks: the acquisition
// ledger for analysts, and the Google Alerts setup checklist that feeds
// the inbox channel.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/pmackar/aireshark/internal/store"
)

var acquisitionHeaders = []string{
	"Date", "PE Firm", "Platform", "Brand", "Deal Type", "Amount", "Source URL", "Notes",
}

// WriteAcquisitions writes the joined acquisition rows to an xlsx file at
// path, in the order provided by the store (newest first).
func WriteAcquisitions(path string, rows []store.AcquisitionRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Acquisitions")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range acquisitionHeaders {
		header.AddCell().SetString(h)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Date.Format("2006-01-02"))
		r.AddCell().SetString(row.FirmName)
		r.AddCell().SetString(row.PlatformName)
		r.AddCell().SetString(row.BrandName)
		r.AddCell().SetString(row.DealType)
		r.AddCell().SetString(row.Amount)
		r.AddCell().SetString(row.SourceURL)
		r.AddCell().SetString(row.Notes)
	}

	sheet.SetColWidth(0, 0, 12) //nolint:errcheck
	sheet.SetColWidth(1, 3, 28) //nolint:errcheck
	sheet.SetColWidth(4, 5, 18) //nolint:errcheck
	sheet.SetColWidth(6, 6, 50) //nolint:errcheck
	sheet.SetColWidth(7, 7, 40) //nolint:errcheck

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}
