package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/angelmondragon/taskrent-backend/internal/tickets"
)

// renderTicket writes the ticket header and its message log as a table.
func renderTicket(w io.Writer, detail *tickets.TicketDetail, now time.Time) {
	if detail == nil {
		fmt.Fprintln(w, "ticket not loaded")
		return
	}
	fmt.Fprintf(w, "ticket %s  [%s]  order=%s\n", detail.TicketNumber, detail.Status.Display().Label, detail.OrderID)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "Time", "From", "Message", "Attachments"})
	for _, msg := range detail.Messages {
		tw.AppendRow(table.Row{
			msg.ID,
			tickets.FormatMessageTime(msg.CreatedAt, now),
			msg.SenderType.Display().Label,
			msg.Content,
			strings.Join(msg.Attachments, "\n"),
		})
	}
	tw.Render()

	if detail.Closed() {
		fmt.Fprintln(w, "ticket is closed, no further messages can be sent")
	}
}
