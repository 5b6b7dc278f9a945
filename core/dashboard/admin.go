package dashboard

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/user"
)

// Admin is the administrator dashboard: people, levels, classes and subjects.
type Admin struct {
	base

	account     user.User
	students    []user.Student
	teachers    []user.Teacher
	parents     []user.Parent
	levels      []academics.Level
	classes     []academics.Class
	subjects    []academics.Subject
	classForm   academics.NewClass
	subjectForm academics.NewSubject
}

func NewAdmin(deps Deps) *Admin {
	return &Admin{base: newBase(deps)}
}

func (d *Admin) Open(ctx context.Context, store SessionLoader) error {
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
	d.spawn(ctx, gen, "school", d.loadAll)
	return nil
}

// loadAll fetches the six collections together; nothing is applied unless all succeed.
func (d *Admin) loadAll(ctx context.Context) (func(), error) {
	var (
		students []user.Student
		teachers []user.Teacher
		parents  []user.Parent
		levels   []academics.Level
		classes  []academics.Class
		subjects []academics.Subject
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = d.API.Students.List(gctx, nil)
		return errors.Wrap(err, "listing students")
	})
	g.Go(func() (err error) {
		teachers, err = d.API.Teachers.List(gctx, nil)
		return errors.Wrap(err, "listing teachers")
	})
	g.Go(func() (err error) {
		parents, err = d.API.Parents.List(gctx, nil)
		return errors.Wrap(err, "listing parents")
	})
	g.Go(func() (err error) {
		levels, err = d.API.Levels.List(gctx, nil)
		return errors.Wrap(err, "listing levels")
	})
	g.Go(func() (err error) {
		classes, err = d.API.Classes.List(gctx, nil)
		return errors.Wrap(err, "listing classes")
	})
	g.Go(func() (err error) {
		subjects, err = d.API.Subjects.List(gctx, nil)
		return errors.Wrap(err, "listing subjects")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return func() {
		d.students = students
		d.teachers = teachers
		d.parents = parents
		d.levels = levels
		d.classes = classes
		d.subjects = subjects
	}, nil
}

// AddClass opens a class, then reloads everything. On failure the submitted form is kept.
func (d *Admin) AddClass(ctx context.Context, form academics.NewClass) error {
	d.mu.Lock()
	d.classForm = form
	d.mu.Unlock()

	gen, err := d.readyGen()
	if err != nil {
		return err
	}
	if err = d.validate(&form); err != nil {
		return err
	}
	if _, err = d.API.Classes.Create(ctx, form); err != nil {
		return errors.Wrap(err, "creating class")
	}

	d.mu.Lock()
	d.classForm = academics.NewClass{}
	d.mu.Unlock()
	d.spawn(ctx, gen, "school", d.loadAll)
	return nil
}

// AddSubject creates a subject, then reloads everything. On failure the submitted form is kept.
func (d *Admin) AddSubject(ctx context.Context, form academics.NewSubject) error {
	d.mu.Lock()
	d.subjectForm = form
	d.mu.Unlock()

	gen, err := d.readyGen()
	if err != nil {
		return err
	}
	if err = d.validate(&form); err != nil {
		return err
	}
	if _, err = d.API.Subjects.Create(ctx, form); err != nil {
		return errors.Wrap(err, "creating subject")
	}

	d.mu.Lock()
	d.subjectForm = academics.NewSubject{}
	d.mu.Unlock()
	d.spawn(ctx, gen, "school", d.loadAll)
	return nil
}

func (d *Admin) ClassForm() academics.NewClass {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classForm
}

func (d *Admin) SubjectForm() academics.NewSubject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subjectForm
}

func (d *Admin) Account() user.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.account
}

func (d *Admin) Students() []user.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.students)
}

func (d *Admin) Teachers() []user.Teacher {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.teachers)
}

func (d *Admin) Parents() []user.Parent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.parents)
}

func (d *Admin) Levels() []academics.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.levels)
}

func (d *Admin) Classes() []academics.Class {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.classes)
}

func (d *Admin) Subjects() []academics.Subject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.subjects)
}

// Counts are the figures of the administrator overview.
type Counts struct {
	TotalUsers     int
	ActiveStudents int
	TotalClasses   int
	TotalSubjects  int
}

func (d *Admin) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	active := 0
	for _, s := range d.students {
		if !s.IsArchived {
			active++
		}
	}
	return Counts{
		TotalUsers:     len(d.students) + len(d.teachers) + len(d.parents),
		ActiveStudents: active,
		TotalClasses:   len(d.classes),
		TotalSubjects:  len(d.subjects),
	}
}
