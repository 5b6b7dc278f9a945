package dashboard

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/user"
)

// Parent is the dashboard of a parent: their children, and the grades, invoices and payments of the selected child.
type Parent struct {
	base

	profile  user.Parent
	children []user.Student
	selected int // student id, 0 when none

	// child-scoped
	grades    []academics.Grade
	invoices  []finance.Invoice
	payments  []finance.Payment
	bulletins []documents.Bulletin
}

func NewParent(deps Deps) *Parent {
	return &Parent{base: newBase(deps)}
}

// Open loads the dashboard and selects the first child.
func (d *Parent) Open(ctx context.Context, store SessionLoader) error {
	return d.OpenChild(ctx, store, 0)
}

// OpenChild loads the dashboard and selects child `childID`, or the first child when it is not one of theirs.
func (d *Parent) OpenChild(ctx context.Context, store SessionLoader, childID int) error {
	sess, gen, err := d.begin(store)
	if err != nil {
		return err
	}

	profile, err := matchProfile(ctx, d.API.Parents, sess.User.Email)
	if err != nil {
		return d.fail(ctx, gen, err)
	}
	if err = d.ready(ctx, gen, func() { d.profile = profile }); err != nil {
		return err
	}

	d.spawn(ctx, gen, "children", func(ctx context.Context) (func(), error) {
		children, err := d.loadChildren(ctx, profile.ID)
		if err != nil {
			return nil, err
		}
		return func() {
			d.children = children
			if len(children) == 0 {
				return
			}
			if !hasStudent(children, childID) {
				childID = children[0].ID
			}
			d.selectLocked(ctx, childID)
		}, nil
	})
	return nil
}

// loadChildren joins the parent's links with the students.
func (d *Parent) loadChildren(ctx context.Context, parentID int) ([]user.Student, error) {
	var links []user.ParentStudent
	var students []user.Student

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		links, err = d.API.ParentStudents.List(gctx, idFilter("parent", parentID))
		return errors.Wrap(err, "listing parent students")
	})
	g.Go(func() error {
		var err error
		students, err = d.API.Students.List(gctx, nil)
		return errors.Wrap(err, "listing students")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[int]user.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	children := make([]user.Student, 0, len(links))
	for _, link := range links {
		if link.Parent.ID != parentID {
			continue
		}
		if s, ok := byID[link.Student.ID]; ok && !hasStudent(children, s.ID) {
			children = append(children, s)
		}
	}
	return children, nil
}

func hasStudent(students []user.Student, id int) bool {
	for _, s := range students {
		if s.ID == id {
			return true
		}
	}
	return false
}

// SelectChild discards the data of the previous child, then loads the data of child `id`.
func (d *Parent) SelectChild(ctx context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReady {
		return ErrNotReady
	}
	if !hasStudent(d.children, id) {
		return ErrChildNotFound
	}
	d.selectLocked(ctx, id)
	return nil
}

// selectLocked supersedes every child-scoped fetch in flight.
func (d *Parent) selectLocked(ctx context.Context, id int) {
	d.gen++
	gen := d.gen

	d.selected = id
	d.grades = nil
	d.invoices = nil
	d.payments = nil
	d.bulletins = nil

	byChild := idFilter("student", id)
	d.spawnLocked(ctx, gen, "child grades", listInto(d.API.Grades, byChild.WithOrdering(newestOrdering), &d.grades))
	d.spawnLocked(ctx, gen, "child invoices", listInto(d.API.Invoices, byChild.WithOrdering(newestOrdering), &d.invoices))
	d.spawnLocked(ctx, gen, "payments", listInto(d.API.Payments, nil, &d.payments))
	d.spawnLocked(ctx, gen, "child bulletins", listInto(d.API.Bulletins, byChild, &d.bulletins))
}

func (d *Parent) Profile() user.Parent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile
}

func (d *Parent) Children() []user.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.children)
}

// SelectedChild returns the selected child, if any.
func (d *Parent) SelectedChild() (user.Student, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.children {
		if s.ID == d.selected {
			return s, true
		}
	}
	return user.Student{}, false
}

func (d *Parent) Grades() []academics.Grade {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.grades)
}

func (d *Parent) Invoices() []finance.Invoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.invoices)
}

// Payments returns the loaded payments settling one of the selected child's invoices.
func (d *Parent) Payments() []finance.Payment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return finance.PaymentsForInvoices(d.payments, d.invoices)
}

func (d *Parent) Bulletins() []documents.Bulletin {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.bulletins)
}

func (d *Parent) AverageGrade() string {
	return academics.AverageGrade(d.Grades())
}

func (d *Parent) PendingAmount() float64 {
	return finance.PendingAmount(d.Invoices())
}

func (d *Parent) OverdueAmount() float64 {
	return finance.OverdueAmount(d.Invoices(), d.Now())
}
