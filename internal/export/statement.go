// Package export renders ledger records as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	StatementSheet       = "Statement"
	StatementContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	headerRow            = 6
)

var statementHeaders = []string{"Date", "Entry", "Amount", "Applied", "Balance", "Method", "Remarks", "Recorded By"}

// StatementFilename is the download name for a customer's statement
func StatementFilename(credit *model.Credit, now time.Time) string {
	return fmt.Sprintf("statement_%s_%s.xlsx", credit.ID.String()[:8], now.Format("20060102"))
}

// WriteStatement writes an XLSX statement for credit: a summary block, then
// one row per replayed entry with the running balance. Dates are shown in loc.
func WriteStatement(w io.Writer, credit *model.Credit, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(StatementSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	status := "Settled"
	if credit.IsActive {
		status = "Owing"
	}
	summary := [][]interface{}{
		{"Customer", credit.CustomerName},
		{"Balance", credit.TotalOwed.InexactFloat64()},
		{"Status", status},
		{"Total Purchases", credit.TotalTransactions().InexactFloat64()},
		{"Total Payments", credit.TotalPayments().InexactFloat64()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(StatementSheet, cell, &row); err != nil {
			return err
		}
	}

	headerCell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(StatementSheet, headerCell, &statementHeaders); err != nil {
		return err
	}

	for i, line := range credit.Statement() {
		row := []interface{}{
			line.Date.In(loc).Format("2006-01-02 15:04"),
			line.Kind,
			line.Amount.InexactFloat64(),
			line.Applied.InexactFloat64(),
			line.Balance.InexactFloat64(),
			string(line.Method),
			line.Remarks,
			line.RecordedBy,
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(StatementSheet, cell, &row); err != nil {
			return err
		}
	}

	f.SetColWidth(StatementSheet, "A", "A", 18)
	f.SetColWidth(StatementSheet, "B", "B", 16)
	f.SetColWidth(StatementSheet, "C", "E", 12)
	f.SetColWidth(StatementSheet, "G", "H", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write statement: %w", err)
	}
	return nil
}
