package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"service-center/internal/app"
	"service-center/internal/core"

	"github.com/shopspring/decimal"
)

var errCancelled = errors.New("cancelled")

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	raw, err := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "cancel") {
		return "", errCancelled
	}
	if err != nil && raw == "" {
		return "", errCancelled
	}
	return raw, nil
}

// newInvoiceWizard collects customer, visit and parts interactively and
// submits them as one complete invoice.
func newInvoiceWizard(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService) {
	req, err := collectInvoice(ctx, reader, out, svc)
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(out, "Invoice cancelled.")
		return
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	inv, err := svc.CreateCompleteInvoice(ctx, req)
	if err != nil {
		fmt.Fprintf(out, "Invoice FAILED: %v\n", err)
		return
	}
	fmt.Fprintf(out, "\nInvoice %s issued. Net amount %s.\n", inv.InvoiceNumber, inv.NetAmount.StringFixed(2))
}

func collectInvoice(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService) (app.CompleteInvoiceRequest, error) {
	var req app.CompleteInvoiceRequest
	fmt.Fprintln(out, "New invoice. Type 'cancel' at any prompt to abort.")

	regNo, err := prompt(reader, out, "Vehicle registration number: ")
	if err != nil {
		return req, err
	}
	req.CustomerDetails.VehicleRegNo = regNo

	// Only a new vehicle needs the full customer block.
	existing, err := svc.ListCustomers(ctx, regNo)
	if err != nil {
		return req, err
	}
	if c := matchRegNo(existing, regNo); c != nil {
		fmt.Fprintf(out, "Customer: %s (%s), %s\n", c.Name, c.Mobile, c.VehicleModel)
	} else {
		fmt.Fprintln(out, "New vehicle. Enter customer details.")
		fields := []struct {
			label string
			dst   *string
		}{
			{"  Name: ", &req.CustomerDetails.Name},
			{"  Mobile: ", &req.CustomerDetails.Mobile},
			{"  Address: ", &req.CustomerDetails.Address},
			{"  Vehicle model: ", &req.CustomerDetails.VehicleModel},
			{"  Engine no: ", &req.CustomerDetails.EngineNo},
			{"  Frame no: ", &req.CustomerDetails.FrameNo},
		}
		for _, f := range fields {
			if *f.dst, err = prompt(reader, out, f.label); err != nil {
				return req, err
			}
		}
	}

	for {
		raw, err := prompt(reader, out, "Odometer (km): ")
		if err != nil {
			return req, err
		}
		if km, convErr := strconv.Atoi(raw); convErr == nil && km >= 0 {
			req.ServiceDetails.Km = km
			break
		}
		fmt.Fprintln(out, "  Invalid km.")
	}
	if req.ServiceDetails.ServiceCost, err = promptMoney(reader, out, "Labour cost: "); err != nil {
		return req, err
	}
	if req.ServiceDetails.Description, err = prompt(reader, out, "Work done: "); err != nil {
		return req, err
	}

	fmt.Fprintln(out, "Enter parts. Type 'done' when finished.")
	fmt.Fprintln(out, "Format per line: <sku> <quantity> [unit-price]")
	for lineNum := 1; ; {
		raw, err := prompt(reader, out, fmt.Sprintf("  Part %d: ", lineNum))
		if err != nil {
			return req, err
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		if raw == "" {
			continue
		}
		part, msg := parsePartLine(ctx, svc, raw)
		if msg != "" {
			fmt.Fprintln(out, "  "+msg)
			continue
		}
		req.ServiceDetails.SparePartsUsed = append(req.ServiceDetails.SparePartsUsed, part)
		lineNum++
	}

	if req.Discount, err = promptMoney(reader, out, "Discount [0]: "); err != nil {
		return req, err
	}
	return req, nil
}

func promptMoney(reader *bufio.Reader, out io.Writer, label string) (decimal.Decimal, error) {
	for {
		raw, err := prompt(reader, out, label)
		if err != nil {
			return decimal.Zero, err
		}
		if raw == "" {
			return decimal.Zero, nil
		}
		d, convErr := decimal.NewFromString(raw)
		if convErr == nil && !d.IsNegative() {
			return d, nil
		}
		fmt.Fprintln(out, "  Invalid amount.")
	}
}

// parsePartLine resolves "<sku> <qty> [price]" against the catalog. A
// non-empty message means the line was rejected.
func parsePartLine(ctx context.Context, svc app.ApplicationService, raw string) (app.SparePartRequest, string) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return app.SparePartRequest{}, "Invalid format. Use: <sku> <quantity> [unit-price]"
	}
	qty, err := strconv.Atoi(fields[1])
	if err != nil || qty <= 0 {
		return app.SparePartRequest{}, "Invalid quantity."
	}

	items, err := svc.ListInventory(ctx, app.InventoryListRequest{Search: fields[0]})
	if err != nil {
		return app.SparePartRequest{}, "Lookup failed: " + err.Error()
	}
	var item *core.InventoryItem
	for i := range items {
		if strings.EqualFold(items[i].SKU, fields[0]) {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return app.SparePartRequest{}, fmt.Sprintf("No item with SKU %s.", fields[0])
	}

	part := app.SparePartRequest{Item: item.ID.String(), Quantity: qty}
	if len(fields) >= 3 {
		price, err := decimal.NewFromString(fields[2])
		if err != nil || price.IsNegative() {
			return app.SparePartRequest{}, "Invalid price."
		}
		part.UnitPrice = &price
	}
	return part, ""
}

func matchRegNo(customers []core.Customer, regNo string) *core.Customer {
	want := core.NormalizeRegNo(regNo)
	for i := range customers {
		if customers[i].VehicleRegNo == want {
			return &customers[i]
		}
	}
	return nil
}
