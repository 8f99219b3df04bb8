package handlers

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/i18n"
	"github.com/diewo77/go-facturas/internal/pages"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportColumns = []string{
	"col_number", "col_customer", "col_email", "col_issue_date", "col_due_date",
	"col_subtotal", "col_tax", "col_total", "col_status",
}

// writeInvoicesXLSX writes rows as a single-sheet workbook with localized
// headers. Amounts are numeric cells formatted with two decimals.
func writeInvoicesXLSX(w io.Writer, rows []pages.InvoiceRow, lang string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := i18n.T(lang, "sheet_invoices")
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	header := make([]any, len(exportColumns))
	for i, key := range exportColumns {
		header[i] = i18n.T(lang, key)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		subtotal, _ := r.Subtotal.Float64()
		tax, _ := r.TaxAmount.Float64()
		total, _ := r.Total.Float64()
		values := []any{
			r.InvoiceNumber,
			r.CustomerName,
			r.CustomerEmail,
			r.IssueDate.String(),
			r.DueDate.String(),
			subtotal,
			tax,
			total,
			i18n.T(lang, "status_"+string(r.Status)),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	if err := f.SetCellStyle(sheet, "A1", "I1", bold); err != nil {
		return errors.Wrap(err, "apply header style")
	}
	if len(rows) > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
		if err != nil {
			return errors.Wrap(err, "amount style")
		}
		last, _ := excelize.CoordinatesToCellName(8, len(rows)+1)
		if err := f.SetCellStyle(sheet, "F2", last, money); err != nil {
			return errors.Wrap(err, "apply amount style")
		}
	}
	if err := f.SetColWidth(sheet, "A", "I", 18); err != nil {
		return errors.Wrap(err, "column width")
	}

	return errors.Wrap(f.Write(w), "write workbook")
}
