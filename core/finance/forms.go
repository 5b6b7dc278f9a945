package finance

import (
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
)

// NewInvoice contains information needed to issue an Invoice.
type NewInvoice struct {
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceType   string        `json:"invoice_type" validate:"required,oneof=tuition salary expense other"`
	Student       int           `json:"student" validate:"required"`
	Amount        float64       `json:"amount" validate:"required,gt=0"`
	DueDate       string        `json:"due_date" validate:"required,isodate"`
	Description   string        `json:"description"`
	Status        InvoiceStatus `json:"status" validate:"required,oneof=pending paid overdue cancelled"`
}

// DefaultNewInvoice returns the blank invoice form.
func DefaultNewInvoice() NewInvoice {
	return NewInvoice{InvoiceType: "tuition", Status: InvoicePending}
}

func (ni *NewInvoice) Validate(validate *validator.Validate, translator ut.Translator) error {
	ni.DueDate = core.CleanString(ni.DueDate)
	ni.Description = core.CleanString(ni.Description)
	return core.ValidateStruct(validate, translator, ni)
}

// InvoiceNumber generates an invoice number from the issuing time.
func InvoiceNumber(now time.Time) string {
	return "INV-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// NewPayment contains information needed to record a Payment.
type NewPayment struct {
	Invoice         int           `json:"invoice" validate:"required"`
	Amount          float64       `json:"amount" validate:"required,gt=0"`
	PaymentMethod   string        `json:"payment_method" validate:"required,oneof=cash bank_transfer cheque card"`
	PaymentDate     string        `json:"payment_date" validate:"required,isodate"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	Status          PaymentStatus `json:"status" validate:"required,oneof=pending completed failed refunded"`
}

// DefaultNewPayment returns the blank payment form, dated `now`.
func DefaultNewPayment(now time.Time) NewPayment {
	return NewPayment{
		PaymentMethod: "cash",
		PaymentDate:   now.Format(core.DateLayout),
		Status:        PaymentCompleted,
	}
}

func (np *NewPayment) Validate(validate *validator.Validate, translator ut.Translator) error {
	np.PaymentDate = core.CleanString(np.PaymentDate)
	np.ReferenceNumber = core.CleanString(np.ReferenceNumber)
	return core.ValidateStruct(validate, translator, np)
}
