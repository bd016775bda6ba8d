package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
)

// renderOrder prints the status label, the amounts and the actions the
// actor can take next.
func renderOrder(w io.Writer, order *orders.Order, actions []enums.OrderAction) {
	if order == nil {
		fmt.Fprintln(w, "order not loaded")
		return
	}
	fmt.Fprintf(w, "order %s  %s  [%s]\n", order.OrderNumber, order.Title, order.Status.Display().Label)

	amounts := order.Amounts()
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Total", "Deposit", "Platform fee", "Seller income"})
	tw.AppendRow(table.Row{amounts.Total, amounts.Deposit, amounts.PlatformFee, amounts.SellerIncome})
	tw.Render()

	if order.Kind == enums.OrderKindRental {
		fmt.Fprintf(w, "lease days: %d\n", order.LeaseDays)
	}
	if order.TicketNumber != "" {
		fmt.Fprintf(w, "ticket: %s\n", order.TicketNumber)
	}
	if order.CancelReason != "" {
		fmt.Fprintf(w, "cancel reason: %s\n", order.CancelReason)
	}
	if order.DisputeReason != "" {
		fmt.Fprintf(w, "dispute reason: %s\n", order.DisputeReason)
	}

	if order.Status.IsTerminal() {
		fmt.Fprintln(w, "order is final")
		return
	}
	if len(actions) == 0 {
		fmt.Fprintln(w, "no actions available")
		return
	}
	labels := make([]string, 0, len(actions))
	for _, action := range actions {
		labels = append(labels, fmt.Sprintf("%s (%s)", action.Label(), action))
	}
	fmt.Fprintf(w, "actions: %s\n", strings.Join(labels, ", "))
}
