package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"service-center/internal/adapters/cli"
	"service-center/internal/app"
)

// Run starts the interactive counter session. Slash commands are the
// one-shot CLI commands; /new-invoice walks through a visit and bills it.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out, "Service Center")
	fmt.Fprintln(out, "Type /new-invoice to bill a visit, or /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}
		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(out, "Commands start with /. Type /help for the list.")
			continue
		}

		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "exit", "quit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return
		case "help", "h":
			printHelp(out)
		case "new-invoice", "ni":
			newInvoiceWizard(ctx, reader, out, svc)
		default:
			if err := cli.Run(ctx, svc, tokens, out); err != nil {
				if errors.Is(err, cli.ErrUsage) {
					fmt.Fprintln(out, strings.TrimPrefix(err.Error(), cli.ErrUsage.Error()+": "))
				} else {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `
  /new-invoice              record a visit and issue its invoice
  /new-id                   preview the next invoice number
  /invoice <number|id>      show an invoice
  /invoices [pending|paid]  list invoices
  /pay <number|id>          mark an invoice paid
  /customers [search]       list customers
  /stock                    list inventory
  /low-stock [threshold]    items at or below threshold
  /restock <item-id> <qty>  add stock
  /export <file.xlsx>       export invoices to a spreadsheet
  /exit                     leave`)
}
