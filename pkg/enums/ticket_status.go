package enums

import "fmt"

// TicketStatus tracks the state of a support/dispute ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusClosed,
}

// TicketStatuses returns every known ticket status.
func TicketStatuses() []TicketStatus {
	out := make([]TicketStatus, len(validTicketStatuses))
	copy(out, validTicketStatuses)
	return out
}

// String implements fmt.Stringer.
func (t TicketStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TicketStatus.
func (t TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsClosed reports whether the ticket accepts no further messages.
func (t TicketStatus) IsClosed() bool {
	return t == TicketStatusClosed
}

// Display returns the label and tone used to render the status.
func (t TicketStatus) Display() Display {
	switch t {
	case TicketStatusOpen:
		return Display{Label: "待处理", Tone: ToneWarning}
	case TicketStatusInProgress:
		return Display{Label: "处理中", Tone: ToneProgress}
	case TicketStatusClosed:
		return Display{Label: "已关闭", Tone: ToneNeutral}
	}
	panic(fmt.Sprintf("enums: ticket status %q has no display mapping", string(t)))
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
