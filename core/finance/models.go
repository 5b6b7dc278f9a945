package finance

import (
	"time"

	"github.com/trezcool/masomo-portal/core"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var PaymentMethods = []string{"cash", "bank_transfer", "cheque", "card"}

type (
	Invoice struct {
		ID            int           `json:"id"`
		InvoiceNumber string        `json:"invoice_number"`
		InvoiceType   string        `json:"invoice_type,omitempty"`
		Student       core.Ref      `json:"student"`
		Amount        core.Number   `json:"amount"`
		Description   string        `json:"description,omitempty"`
		DueDate       core.Date     `json:"due_date"`
		Status        InvoiceStatus `json:"status"`
		CreatedAt     time.Time     `json:"created_at"`
	}

	Payment struct {
		ID              int           `json:"id"`
		Invoice         core.Ref      `json:"invoice"`
		Amount          core.Number   `json:"amount"`
		PaymentMethod   string        `json:"payment_method"`
		PaymentDate     core.Date     `json:"payment_date"`
		ReferenceNumber string        `json:"reference_number,omitempty"`
		Status          PaymentStatus `json:"status"`
	}
)

// IsOverdue reports whether the invoice is still pending while its due date is strictly before `now`'s date.
// Overdue is derived: the stored status stays "pending".
func (inv Invoice) IsOverdue(now time.Time) bool {
	if inv.Status != InvoicePending || inv.DueDate.IsZero() {
		return false
	}
	return inv.DueDate.Before(core.DateOf(now))
}

// DisplayStatus is the status shown to users, overdue included.
func (inv Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if inv.IsOverdue(now) {
		return InvoiceOverdue
	}
	return inv.Status
}

// TotalRevenue sums all payment amounts.
func TotalRevenue(payments []Payment) float64 {
	var total float64
	for _, p := range payments {
		total += p.Amount.Float()
	}
	return total
}

// PendingAmount sums the amounts of pending invoices.
func PendingAmount(invoices []Invoice) float64 {
	var total float64
	for _, inv := range invoices {
		if inv.Status == InvoicePending {
			total += inv.Amount.Float()
		}
	}
	return total
}

// OverdueAmount sums the amounts of pending invoices due strictly before `now`'s date.
func OverdueAmount(invoices []Invoice, now time.Time) float64 {
	var total float64
	for _, inv := range invoices {
		if inv.IsOverdue(now) {
			total += inv.Amount.Float()
		}
	}
	return total
}

// PaymentsForInvoices keeps the payments settling one of `invoices` (matched by invoice id).
func PaymentsForInvoices(payments []Payment, invoices []Invoice) []Payment {
	ids := make(map[int]struct{}, len(invoices))
	for _, inv := range invoices {
		ids[inv.ID] = struct{}{}
	}
	kept := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if _, ok := ids[p.Invoice.ID]; ok {
			kept = append(kept, p)
		}
	}
	return kept
}
