package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"service-center/internal/app"
)

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("usage error")

// Commands lists the one-shot subcommands, for help output.
const Commands = "new-id, invoice, invoices, pay, customers, stock, low-stock, restock, export, hash-password"

// Run executes a one-shot CLI command.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given\nAvailable: %s", ErrUsage, Commands)
	}

	switch args[0] {
	case "new-id", "next":
		number, err := svc.PreviewInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Next invoice number: %s\n", number)

	case "invoice", "inv":
		if len(args) < 2 {
			return fmt.Errorf("%w: app invoice <invoice-number|id>", ErrUsage)
		}
		inv, err := svc.GetInvoice(ctx, args[1])
		if err != nil {
			return err
		}
		printInvoice(out, inv)

	case "invoices", "list":
		req := app.InvoiceListRequest{}
		if len(args) > 1 {
			req.Status = strings.ToLower(args[1])
		}
		result, err := svc.ListInvoices(ctx, req)
		if err != nil {
			return err
		}
		printInvoiceList(out, result.Invoices)

	case "pay":
		if len(args) < 2 {
			return fmt.Errorf("%w: app pay <invoice-number|id>", ErrUsage)
		}
		inv, err := svc.UpdateInvoiceStatus(ctx, args[1], app.UpdateStatusRequest{Status: "paid"})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Invoice %s marked as PAID.\n", inv.InvoiceNumber)

	case "customers":
		search := ""
		if len(args) > 1 {
			search = strings.Join(args[1:], " ")
		}
		customers, err := svc.ListCustomers(ctx, search)
		if err != nil {
			return err
		}
		printCustomers(out, customers)

	case "stock":
		items, err := svc.ListInventory(ctx, app.InventoryListRequest{})
		if err != nil {
			return err
		}
		printStock(out, "STOCK", items)

	case "low-stock":
		threshold := -1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("%w: threshold must be a non-negative integer, got %q", ErrUsage, args[1])
			}
			threshold = n
		}
		items, err := svc.LowStock(ctx, threshold)
		if err != nil {
			return err
		}
		printStock(out, "LOW STOCK", items)

	case "restock":
		if len(args) < 3 {
			return fmt.Errorf("%w: app restock <item-id> <quantity>", ErrUsage)
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: quantity must be an integer, got %q", ErrUsage, args[2])
		}
		result, err := svc.RestockInventoryItem(ctx, args[1], app.RestockRequest{Quantity: qty})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s. On hand: %d\n", result.Message, result.Quantity)

	case "export":
		if len(args) < 2 {
			return fmt.Errorf("%w: app export <file.xlsx> [status]", ErrUsage)
		}
		req := app.InvoiceListRequest{}
		if len(args) > 2 {
			req.Status = strings.ToLower(args[2])
		}
		export, err := svc.ExportInvoices(ctx, req)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], export.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[1], err)
		}
		fmt.Fprintf(out, "Exported %d invoices to %s\n", export.Count, args[1])

	case "hash-password":
		if len(args) < 2 {
			return fmt.Errorf("%w: app hash-password <password>", ErrUsage)
		}
		hash, err := app.HashPassword(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hash)

	default:
		return fmt.Errorf("%w: unknown command %q\nAvailable: %s", ErrUsage, args[0], Commands)
	}
	return nil
}
