package report

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/audit-cli/internal/model"
)

// WorkbookXLSX renders the full audit as a multi-sheet Excel workbook. The
// sheet columns mirror the CSV exports so either format diffs cleanly.
func (a *Assembler) WorkbookXLSX(customer *model.Customer, result *model.AuditResult) ([]byte, error) {
	f := xlsx.NewFile()

	if err := a.addOverviewSheet(f, customer, result); err != nil {
		return nil, err
	}
	if err := addTableSheet(f, "Technical Issues", technicalIssueColumns, a.technicalIssueRows(result)); err != nil {
		return nil, err
	}
	if err := addTableSheet(f, "Keyword Opportunities", keywordOpportunityColumns, keywordOpportunityRows(result)); err != nil {
		return nil, err
	}
	if err := addTableSheet(f, "Competitors", competitorColumns, competitorRows(result)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "report: write xlsx")
	}
	return buf.Bytes(), nil
}

func (a *Assembler) addOverviewSheet(f *xlsx.File, customer *model.Customer, result *model.AuditResult) error {
	sheet, err := f.AddSheet("Overview")
	if err != nil {
		return eris.Wrap(err, "report: add overview sheet")
	}

	addKV := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().Value = key
		row.AddCell().Value = value
	}
	addScore := func(key string, score int) {
		row := sheet.AddRow()
		row.AddCell().Value = key
		row.AddCell().SetInt(score)
	}

	addKV("Company", customer.CompanyName)
	addKV("Website", customer.Website)
	addKV("Domain", result.Domain)
	addKV("Generated", result.GeneratedAt.Format("2006-01-02 15:04 MST"))
	sheet.AddRow()
	addScore("Overall Score", result.Scores.Overall)
	addScore("Performance", result.Scores.Performance)
	addScore("Technical", result.Scores.Technical)
	addScore("Backlinks", result.Scores.Backlinks)
	addScore("Keywords", result.Scores.Keywords)
	return nil
}

func addTableSheet(f *xlsx.File, name string, header []string, rows [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", name)
	}
	headerRow := sheet.AddRow()
	for _, col := range header {
		headerRow.AddCell().Value = col
	}
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	return nil
}

