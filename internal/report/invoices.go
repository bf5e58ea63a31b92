// Package report renders invoice lists as spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"time"

	"service-center/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// InvoiceSheet is the name of the worksheet InvoicesXLSX writes.
const InvoiceSheet = "Invoices"

var invoiceHeaders = []string{
	"Invoice Number", "Issued At", "Status", "Customer", "Vehicle Reg No",
	"Service Date", "Km", "Description", "Service Cost", "Total Amount", "Discount", "Net Amount",
}

// InvoicesXLSX writes one row per invoice followed by a totals row. Dates are
// rendered in loc.
func InvoicesXLSX(invoices []core.InvoiceSummary, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), InvoiceSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, header := range invoiceHeaders {
		if err := f.SetCellValue(InvoiceSheet, cellName(i, 1), header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(InvoiceSheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	var totalSum, discountSum, netSum decimal.Decimal
	for i, inv := range invoices {
		row := i + 2
		values := []any{
			inv.InvoiceNumber,
			inv.IssuedAt.In(loc).Format("2006-01-02 15:04"),
			string(inv.Status),
			inv.CustomerName,
			inv.VehicleRegNo,
			inv.ServiceDate.In(loc).Format("2006-01-02"),
			inv.ServiceKm,
			inv.ServiceDescription,
			inv.ServiceCost.InexactFloat64(),
			inv.TotalAmount.InexactFloat64(),
			inv.Discount.InexactFloat64(),
			inv.NetAmount.InexactFloat64(),
		}
		for col, v := range values {
			if err := f.SetCellValue(InvoiceSheet, cellName(col, row), v); err != nil {
				return nil, fmt.Errorf("failed to write invoice %s: %w", inv.InvoiceNumber, err)
			}
		}
		totalSum = totalSum.Add(inv.TotalAmount)
		discountSum = discountSum.Add(inv.Discount)
		netSum = netSum.Add(inv.NetAmount)
	}

	totalsRow := len(invoices) + 2
	if err := f.SetCellValue(InvoiceSheet, cellName(0, totalsRow), "Total"); err != nil {
		return nil, fmt.Errorf("failed to write totals: %w", err)
	}
	for col, v := range map[int]decimal.Decimal{9: totalSum, 10: discountSum, 11: netSum} {
		if err := f.SetCellValue(InvoiceSheet, cellName(col, totalsRow), v.InexactFloat64()); err != nil {
			return nil, fmt.Errorf("failed to write totals: %w", err)
		}
	}
	if err := f.SetCellStyle(InvoiceSheet, cellName(8, 2), cellName(11, totalsRow), moneyStyle); err != nil {
		return nil, fmt.Errorf("failed to style amounts: %w", err)
	}

	if err := f.SetColWidth(InvoiceSheet, "A", "L", 16); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(InvoiceSheet, "H", "H", 32); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cellName converts a zero-based column and one-based row to A1 notation.
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
