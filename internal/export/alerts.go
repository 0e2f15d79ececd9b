package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// alertQuery is one Google Alert to configure by hand. Gmail delivers the
// matching alert emails into the inbox channel.
type alertQuery struct {
	Category string
	Query    string
}

// platformAlertNames get a pair of alerts each: "<name> acquires" and
// "<name> acquisition".
var platformAlertNames = []string{
	`"Apex Service Partners"`,
	`"Sila Services"`,
	`"Redwood Services"`,
	`"SEER Group"`,
	`"Heartland Home Services"`,
	`"Exigent Group"`,
	`"Orion Group" HVAC`,
	`"Wrench Group"`,
	`"Any Hour Group"`,
	`"Bestige" HVAC`,
	`"Frontier Service Partners"`,
	`"Frank Gay Services"`,
	`"Morris-Jenkins"`,
	`"Horizon Services"`,
	`"Coolray" HVAC`,
	`"Parker & Sons"`,
	`"HomeBreeze"`,
	`"Reedy Industries"`,
	`"Radiant Plumbing"`,
}

var firmAlertQueries = []string{
	`"Alpine Investors" HVAC`,
	`"Alpine Investors" home services acquisition`,
	`"Audax Private Equity" HVAC`,
	`"Audax Private Equity" home services`,
	`"Riverside Company" HVAC acquisition`,
	`"Riverside Company" home services`,
	`"Huron Capital" HVAC`,
	`"Huron Capital" mechanical services`,
	`"Kohlberg & Company" HVAC`,
	`"Gridiron Capital" home services`,
	`"Leonard Green & Partners" HVAC`,
	`"Morgan Stanley Capital Partners" HVAC`,
	`"Goldman Sachs" HVAC acquisition`,
	`"Ares Management" home services`,
	`"Partners Group" HVAC`,
}

var industryAlertQueries = []string{
	`HVAC "private equity" acquisition`,
	`HVAC company acquired 2025`,
	`"home services" private equity acquisition`,
	`residential HVAC acquisition announced`,
	`plumbing company acquired "private equity"`,
	`HVAC consolidation platform`,
	`"PE-backed" HVAC`,
	`mechanical contractor acquired`,
	`HVAC M&A deal`,
	`air conditioning company acquisition`,
	`"portfolio company" HVAC`,
	`home services roll-up`,
}

func alertCatalog() []alertQuery {
	var alerts []alertQuery
	for _, name := range platformAlertNames {
		alerts = append(alerts,
			alertQuery{Category: "Platform", Query: name + " acquires"},
			alertQuery{Category: "Platform", Query: name + " acquisition"})
	}
	for _, q := range firmAlertQueries {
		alerts = append(alerts, alertQuery{Category: "PE Firm", Query: q})
	}
	for _, q := range industryAlertQueries {
		alerts = append(alerts, alertQuery{Category: "Industry", Query: q})
	}
	return alerts
}

var alertInstructions = []string{
	"Instructions:",
	"1. Go to https://google.com/alerts",
	"2. Copy each query from the Alerts sheet",
	`3. Click "Show options" and set:`,
	"   - How often: As-it-happens",
	"   - Sources: Automatic",
	"   - Region: United States",
	"   - How many: All results",
	`4. Click "Create Alert"`,
	"5. Mark Complete = TRUE in column A",
}

// WriteAlertsChecklist writes the alert setup workbook: a dashboard sheet
// with progress formulas and an Alerts sheet listing every query to create.
func WriteAlertsChecklist(path string) error {
	alerts := alertCatalog()
	f := xlsx.NewFile()

	dashboard, err := f.AddSheet("Dashboard")
	if err != nil {
		return eris.Wrap(err, "export: add dashboard sheet")
	}
	writeDashboard(dashboard, alerts)

	sheet, err := f.AddSheet("Alerts")
	if err != nil {
		return eris.Wrap(err, "export: add alerts sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"Complete", "Category", "Google Alert Query", "Notes"} {
		header.AddCell().SetString(h)
	}
	for _, a := range alerts {
		r := sheet.AddRow()
		r.AddCell().SetBool(false)
		r.AddCell().SetString(a.Category)
		r.AddCell().SetString(a.Query)
		r.AddCell().SetString("")
	}
	sheet.SetColWidth(0, 0, 10) //nolint:errcheck
	sheet.SetColWidth(1, 1, 12) //nolint:errcheck
	sheet.SetColWidth(2, 2, 55) //nolint:errcheck
	sheet.SetColWidth(3, 3, 30) //nolint:errcheck

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func writeDashboard(sheet *xlsx.Sheet, alerts []alertQuery) {
	counts := map[string]int{}
	for _, a := range alerts {
		counts[a.Category]++
	}

	addRow := func(cells ...string) *xlsx.Row {
		r := sheet.AddRow()
		for _, c := range cells {
			r.AddCell().SetString(c)
		}
		return r
	}

	addRow("Google Alerts Setup Dashboard")
	addRow("")
	addRow("Status", "Count", "Formula")

	r := addRow("Total Alerts")
	r.AddCell().SetInt(len(alerts))

	r = addRow("Completed", "")
	r.AddCell().SetFormula(`COUNTIF(Alerts!A:A,TRUE)`)
	r = addRow("Remaining", "")
	r.AddCell().SetFormula(`B4-B5`)
	r = addRow("% Complete", "")
	r.AddCell().SetFormula(`IF(B4>0,B5/B4,0)`)

	addRow("")
	addRow("By Category", "Total", "Completed")
	for _, cat := range []string{"Platform", "PE Firm", "Industry"} {
		r = sheet.AddRow()
		r.AddCell().SetString(cat)
		r.AddCell().SetInt(counts[cat])
		r.AddCell().SetFormula(fmt.Sprintf(`COUNTIFS(Alerts!B:B,%q,Alerts!A:A,TRUE)`, cat))
	}

	addRow("")
	for _, line := range alertInstructions {
		addRow(line)
	}

	sheet.SetColWidth(0, 0, 20) //nolint:errcheck
	sheet.SetColWidth(1, 1, 12) //nolint:errcheck
	sheet.SetColWidth(2, 2, 45) //nolint:errcheck
}
