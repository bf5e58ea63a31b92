package cli

import (
	"fmt"
	"io"
	"strings"

	"service-center/internal/core"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func printInvoice(w io.Writer, inv *core.Invoice) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 66))
	fmt.Fprintf(w, "  INVOICE %s  [%s]\n", inv.InvoiceNumber, strings.ToUpper(string(inv.Status)))
	fmt.Fprintf(w, "  Issued   : %s\n", inv.IssuedAt.Format("2006-01-02 15:04"))
	if c := inv.Customer; c != nil {
		fmt.Fprintf(w, "  Customer : %s (%s)\n", c.Name, c.Mobile)
		fmt.Fprintf(w, "  Vehicle  : %s %s\n", c.VehicleRegNo, c.VehicleModel)
	}
	fmt.Fprintln(w, strings.Repeat("=", 66))
	if s := inv.Service; s != nil {
		fmt.Fprintf(w, "  Service  : %s at %d km\n", s.VisitDate.Format(dateLayout), s.Km)
		fmt.Fprintf(w, "  Work     : %s\n", s.Description)
		fmt.Fprintln(w, strings.Repeat("-", 66))
		fmt.Fprintf(w, "  %-12s %-24s %5s %10s %10s\n", "SKU", "PART", "QTY", "PRICE", "AMOUNT")
		fmt.Fprintln(w, strings.Repeat("-", 66))
		for _, p := range s.Parts {
			mark := ""
			if p.PriceOverridden {
				mark = "*"
			}
			amount := p.UnitPrice.Mul(decimalFromInt(p.Quantity))
			fmt.Fprintf(w, "  %-12s %-24s %5d %10s %10s%s\n",
				truncate(p.SKU, 12), truncate(p.Name, 24), p.Quantity, p.UnitPrice.StringFixed(2), amount.StringFixed(2), mark)
		}
		fmt.Fprintln(w, strings.Repeat("-", 66))
		fmt.Fprintf(w, "  %-44s %20s\n", "Labour", s.ServiceCost.StringFixed(2))
	}
	fmt.Fprintf(w, "  %-44s %20s\n", "Total", inv.TotalAmount.StringFixed(2))
	fmt.Fprintf(w, "  %-44s %20s\n", "Discount", inv.Discount.StringFixed(2))
	fmt.Fprintf(w, "  %-44s %20s\n", "NET", inv.NetAmount.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 66))
}

func printInvoiceList(w io.Writer, invoices []core.InvoiceSummary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-18s %-10s %-20s %-12s %12s  %s\n", "NUMBER", "DATE", "CUSTOMER", "VEHICLE", "NET", "STATUS")
	fmt.Fprintln(w, strings.Repeat("-", 86))
	if len(invoices) == 0 {
		fmt.Fprintln(w, "  No invoices found.")
		return
	}
	for _, inv := range invoices {
		fmt.Fprintf(w, "  %-18s %-10s %-20s %-12s %12s  %s\n",
			inv.InvoiceNumber, inv.IssuedAt.Format(dateLayout), truncate(inv.CustomerName, 20),
			inv.VehicleRegNo, inv.NetAmount.StringFixed(2), inv.Status)
	}
	fmt.Fprintln(w, strings.Repeat("-", 86))
	fmt.Fprintf(w, "  %d invoice(s)\n", len(invoices))
}

func printCustomers(w io.Writer, customers []core.Customer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-12s %-24s %-14s %s\n", "VEHICLE", "NAME", "MOBILE", "MODEL")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	if len(customers) == 0 {
		fmt.Fprintln(w, "  No customers found.")
		return
	}
	for _, c := range customers {
		fmt.Fprintf(w, "  %-12s %-24s %-14s %s\n", c.VehicleRegNo, truncate(c.Name, 24), c.Mobile, c.VehicleModel)
	}
}

func printStock(w io.Writer, title string, items []core.InventoryItem) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	if len(items) == 0 {
		fmt.Fprintln(w, "  No items.")
		fmt.Fprintln(w, strings.Repeat("=", 80))
		return
	}
	fmt.Fprintf(w, "  %-36s %-12s %-16s %8s %4s\n", "ID", "SKU", "NAME", "PRICE", "QTY")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, it := range items {
		fmt.Fprintf(w, "  %-36s %-12s %-16s %8s %4d\n",
			it.ID, truncate(it.SKU, 12), truncate(it.Name, 16), it.Price.StringFixed(2), it.Quantity)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
