package dashboard

import "strconv"

// StatusClass returns the css class of an invoice, payment or record status badge.
func StatusClass(status string) string {
	switch status {
	case "paid", "completed", "active":
		return "primary"
	case "pending", "overdue", "inactive", "archived":
		return "warn"
	default:
		return ""
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
