package tickets

import "time"

// FormatMessageTime renders a store timestamp relative to now: clock time
// for today, month and day within the year, the full date otherwise.
func FormatMessageTime(createdAt, now time.Time) string {
	t := createdAt.In(now.Location())
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("01-02 15:04")
	default:
		return t.Format("2006-01-02 15:04")
	}
}
