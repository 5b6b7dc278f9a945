// Package report exports dashboard data as spreadsheets.
package report

import (
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/user"
)

// Sheet names
const (
	SummarySheet  = "Synthèse"
	InvoicesSheet = "Factures"
	PaymentsSheet = "Paiements"
)

// XLSXContentType is the MIME type of the generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Finance is the data of the manager's financial report.
type Finance struct {
	Students []user.Student
	Invoices []finance.Invoice
	Payments []finance.Payment
	Now      time.Time
}

// Filename returns the download name of the report.
func (fin Finance) Filename() string {
	return "rapport_financier_" + fin.Now.Format(core.DateLayout) + ".xlsx"
}

// FinanceXLSX renders the report as an XLSX workbook: a summary, the invoices and the payments.
func FinanceXLSX(fin Finance) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	if err = f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, errors.Wrap(err, "naming summary sheet")
	}
	for _, name := range []string{InvoicesSheet, PaymentsSheet} {
		if _, err = f.NewSheet(name); err != nil {
			return nil, errors.Wrapf(err, "creating %s sheet", name)
		}
	}

	students := make(map[int]string, len(fin.Students))
	for _, s := range fin.Students {
		students[s.ID] = s.User.FullName()
	}

	summary := [][]interface{}{
		{"Indicateur", "Valeur"},
		{"Date", fin.Now.Format(core.DateLayout)},
		{"Revenus totaux", finance.TotalRevenue(fin.Payments)},
		{"Montant en attente", finance.PendingAmount(fin.Invoices)},
		{"Montant en retard", finance.OverdueAmount(fin.Invoices, fin.Now)},
		{"Factures", len(fin.Invoices)},
		{"Paiements", len(fin.Payments)},
	}

	invoices := [][]interface{}{{"N° Facture", "Type", "Étudiant", "Montant", "Échéance", "Statut"}}
	for _, inv := range fin.Invoices {
		name, ok := students[inv.Student.ID]
		if !ok {
			name = inv.Student.String()
		}
		invoices = append(invoices, []interface{}{
			inv.InvoiceNumber, inv.InvoiceType, name, inv.Amount.Float(), inv.DueDate.String(), string(inv.DisplayStatus(fin.Now)),
		})
	}

	payments := [][]interface{}{{"Facture", "Montant", "Méthode", "Date", "Référence", "Statut"}}
	numbers := make(map[int]string, len(fin.Invoices))
	for _, inv := range fin.Invoices {
		numbers[inv.ID] = inv.InvoiceNumber
	}
	for _, p := range fin.Payments {
		number, ok := numbers[p.Invoice.ID]
		if !ok {
			number = p.Invoice.String()
		}
		payments = append(payments, []interface{}{
			number, p.Amount.Float(), p.PaymentMethod, p.PaymentDate.String(), p.ReferenceNumber, string(p.Status),
		})
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{
		{SummarySheet, summary},
		{InvoicesSheet, invoices},
		{PaymentsSheet, payments},
	} {
		if err = writeRows(f, sheet.name, sheet.rows, header); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

// writeRows writes `rows` from A1; the first row is the header.
func writeRows(f *excelize.File, sheet string, rows [][]interface{}, header int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		row := row
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s row %d", sheet, i+1)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return errors.Wrap(err, "computing cell name")
	}
	if err = f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return errors.Wrapf(err, "styling %s header", sheet)
	}
	lastCol, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return errors.Wrap(err, "computing column name")
	}
	return errors.Wrapf(f.SetColWidth(sheet, "A", lastCol, 20), "sizing %s columns", sheet)
}
