package dashboard

import (
	"context"

	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/user"
)

// Student is the dashboard of a student: own grades, invoices, payments and bulletins.
type Student struct {
	base

	profile   user.Student
	grades    []academics.Grade
	invoices  []finance.Invoice
	payments  []finance.Payment
	bulletins []documents.Bulletin
}

func NewStudent(deps Deps) *Student {
	return &Student{base: newBase(deps)}
}

func (d *Student) Open(ctx context.Context, store SessionLoader) error {
	sess, gen, err := d.begin(store)
	if err != nil {
		return err
	}

	profile, err := matchProfile(ctx, d.API.Students, sess.User.Email)
	if err != nil {
		return d.fail(ctx, gen, err)
	}
	if err = d.ready(ctx, gen, func() { d.profile = profile }); err != nil {
		return err
	}

	byStudent := idFilter("student", profile.ID)
	d.spawn(ctx, gen, "grades", listInto(d.API.Grades, byStudent.WithOrdering(newestOrdering), &d.grades))
	d.spawn(ctx, gen, "invoices", listInto(d.API.Invoices, byStudent.WithOrdering(newestOrdering), &d.invoices))
	d.spawn(ctx, gen, "payments", listInto(d.API.Payments, nil, &d.payments))
	d.spawn(ctx, gen, "bulletins", listInto(d.API.Bulletins, byStudent, &d.bulletins))
	return nil
}

func (d *Student) Profile() user.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile
}

func (d *Student) Grades() []academics.Grade {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.grades)
}

func (d *Student) Invoices() []finance.Invoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.invoices)
}

// Payments returns the loaded payments settling one of the loaded invoices.
func (d *Student) Payments() []finance.Payment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return finance.PaymentsForInvoices(d.payments, d.invoices)
}

func (d *Student) Bulletins() []documents.Bulletin {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.bulletins)
}

func (d *Student) AverageGrade() string {
	return academics.AverageGrade(d.Grades())
}

func (d *Student) PendingAmount() float64 {
	return finance.PendingAmount(d.Invoices())
}

func (d *Student) OverdueAmount() float64 {
	return finance.OverdueAmount(d.Invoices(), d.Now())
}
