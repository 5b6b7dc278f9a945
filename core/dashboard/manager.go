package dashboard

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/user"
)

// Manager is the finance dashboard: every student, invoice and payment, and the invoice & payment forms.
type Manager struct {
	base

	account     user.User
	students    []user.Student
	invoices    []finance.Invoice
	payments    []finance.Payment
	invoiceForm finance.NewInvoice
	paymentForm finance.NewPayment
}

func NewManager(deps Deps) *Manager {
	d := &Manager{base: newBase(deps)}
	d.invoiceForm = finance.DefaultNewInvoice()
	d.paymentForm = finance.DefaultNewPayment(d.Now())
	return d
}

func (d *Manager) Open(ctx context.Context, store SessionLoader) error {
	sess, gen, err := d.begin(store)
	if err != nil {
		return err
	}

	account, err := matchAccount(ctx, d.API.Profile, sess.User.Email)
	if err != nil {
		return d.fail(ctx, gen, err)
	}
	if err = d.ready(ctx, gen, func() { d.account = account }); err != nil {
		return err
	}
	d.spawn(ctx, gen, "finances", d.loadAll)
	return nil
}

// loadAll fetches students, invoices and payments together; nothing is applied unless all succeed.
func (d *Manager) loadAll(ctx context.Context) (func(), error) {
	var students []user.Student
	var invoices []finance.Invoice
	var payments []finance.Payment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = d.API.Students.List(gctx, nil)
		return errors.Wrap(err, "listing students")
	})
	g.Go(func() error {
		var err error
		invoices, err = d.API.Invoices.List(gctx, newestFilter())
		return errors.Wrap(err, "listing invoices")
	})
	g.Go(func() error {
		var err error
		payments, err = d.API.Payments.List(gctx, nil)
		return errors.Wrap(err, "listing payments")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return func() {
		d.students = students
		d.invoices = invoices
		d.payments = payments
	}, nil
}

// AddInvoice issues an invoice (numbered from the current time when blank), then reloads everything.
// On failure nothing is issued and the submitted form is kept.
func (d *Manager) AddInvoice(ctx context.Context, form finance.NewInvoice) error {
	if form.InvoiceNumber == "" {
		form.InvoiceNumber = finance.InvoiceNumber(d.Now())
	}
	d.mu.Lock()
	d.invoiceForm = form
	d.mu.Unlock()

	gen, err := d.readyGen()
	if err != nil {
		return err
	}
	if err = d.validate(&form); err != nil {
		return err
	}
	if _, err = d.API.Invoices.Create(ctx, form); err != nil {
		return errors.Wrap(err, "creating invoice")
	}

	d.mu.Lock()
	d.invoiceForm = finance.DefaultNewInvoice()
	d.mu.Unlock()
	d.spawn(ctx, gen, "finances", d.loadAll)
	return nil
}

// AddPayment records a payment, then reloads everything.
// On failure nothing is recorded and the submitted form is kept.
func (d *Manager) AddPayment(ctx context.Context, form finance.NewPayment) error {
	d.mu.Lock()
	d.paymentForm = form
	d.mu.Unlock()

	gen, err := d.readyGen()
	if err != nil {
		return err
	}
	if err = d.validate(&form); err != nil {
		return err
	}
	if _, err = d.API.Payments.Create(ctx, form); err != nil {
		return errors.Wrap(err, "creating payment")
	}

	d.mu.Lock()
	d.paymentForm = finance.DefaultNewPayment(d.Now())
	d.mu.Unlock()
	d.spawn(ctx, gen, "finances", d.loadAll)
	return nil
}

func (d *Manager) InvoiceForm() finance.NewInvoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invoiceForm
}

func (d *Manager) PaymentForm() finance.NewPayment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paymentForm
}

func (d *Manager) Account() user.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.account
}

func (d *Manager) Students() []user.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.students)
}

func (d *Manager) Invoices() []finance.Invoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.invoices)
}

func (d *Manager) Payments() []finance.Payment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.payments)
}

func (d *Manager) TotalRevenue() float64 {
	return finance.TotalRevenue(d.Payments())
}

func (d *Manager) PendingAmount() float64 {
	return finance.PendingAmount(d.Invoices())
}

func (d *Manager) OverdueAmount() float64 {
	return finance.OverdueAmount(d.Invoices(), d.Now())
}
