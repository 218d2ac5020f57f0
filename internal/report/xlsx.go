// Package report renders reconciliation and fuel-audit results as XLSX
// workbooks for accountants who review them in a spreadsheet.
package report

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/auditware/fiscal-cli/internal/model"
)

const dateLayout = "2006-01-02"

// WriteComparisonXLSX writes a comparison result to an XLSX file with one
// row per (date, CFOP) cell and a totals row at the bottom.
func WriteComparisonXLSX(path string, result *model.ComparisonResult) error {
	f := xlsx.NewFile()
	if err := addComparisonSheet(f, result); err != nil {
		return err
	}
	return eris.Wrap(f.Save(path), "report: save comparison workbook")
}

// WriteInconsistenciesXLSX writes fuel-audit findings to an XLSX file,
// one row per finding in the order given.
func WriteInconsistenciesXLSX(path string, findings []model.Inconsistency) error {
	f := xlsx.NewFile()
	if err := addInconsistenciesSheet(f, findings); err != nil {
		return err
	}
	return eris.Wrap(f.Save(path), "report: save findings workbook")
}

// WriteAuditXLSX writes one workbook holding both the comparison and the
// fuel findings, the shape reviewers hand to the taxpayer.
func WriteAuditXLSX(path string, result *model.ComparisonResult, findings []model.Inconsistency) error {
	f := xlsx.NewFile()
	if err := addComparisonSheet(f, result); err != nil {
		return err
	}
	if err := addInconsistenciesSheet(f, findings); err != nil {
		return err
	}
	return eris.Wrap(f.Save(path), "report: save audit workbook")
}

func addComparisonSheet(f *xlsx.File, result *model.ComparisonResult) error {
	sheet, err := f.AddSheet("Reconciliacao")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Data", "CFOP", "Valor NF-e", "Valor Livro", "Diferenca", "Diferenca %"} {
		header.AddCell().SetString(h)
	}

	for _, row := range result.Rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Date.Format(dateLayout))
		r.AddCell().SetString(row.CFOP)
		setDecimal(r, row.External)
		setDecimal(r, row.Ledger)
		setDecimal(r, row.DiffAbs)
		setDecimal(r, row.DiffPerc)
	}

	totals := sheet.AddRow()
	totals.AddCell().SetString("TOTAL")
	totals.AddCell()
	setDecimal(totals, result.TotalExternal)
	setDecimal(totals, result.TotalLedger)
	setDecimal(totals, result.TotalExternal.Sub(result.TotalLedger))
	totals.AddCell()

	return nil
}

func addInconsistenciesSheet(f *xlsx.File, findings []model.Inconsistency) error {
	sheet, err := f.AddSheet("Inconsistencias")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Tipo", "Severidade", "Produto", "Data", "Tanque", "Bomba", "Esperado", "Encontrado", "Diferenca", "Diferenca %", "Descricao"} {
		header.AddCell().SetString(h)
	}

	for _, finding := range findings {
		r := sheet.AddRow()
		r.AddCell().SetString(string(finding.Type))
		r.AddCell().SetString(string(finding.Severity))
		r.AddCell().SetString(finding.ProductCode)
		r.AddCell().SetString(formatDate(finding.Date))
		r.AddCell().SetString(finding.TankNumber)
		r.AddCell().SetString(finding.PumpNumber)
		r.AddCell().SetFloat(finding.Expected)
		r.AddCell().SetFloat(finding.Found)
		r.AddCell().SetFloat(finding.DiffAbs)
		r.AddCell().SetFloat(finding.DiffPerc)
		r.AddCell().SetString(finding.Description)
	}

	return nil
}

func setDecimal(row *xlsx.Row, v decimal.Decimal) {
	row.AddCell().SetFloat(v.InexactFloat64())
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
