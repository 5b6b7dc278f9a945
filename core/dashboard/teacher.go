package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/user"
)

// Teacher is the dashboard of a teacher: students, subjects, exam types, grades, and the grade form.
type Teacher struct {
	base

	profile    user.Teacher
	students   []user.Student
	subjects   []academics.Subject
	examTypes  []academics.ExamType
	grades     []academics.Grade
	attendance []academics.Attendance
	form       academics.NewGrade
}

func NewTeacher(deps Deps) *Teacher {
	return &Teacher{base: newBase(deps)}
}

func (d *Teacher) Open(ctx context.Context, store SessionLoader) error {
	sess, gen, err := d.begin(store)
	if err != nil {
		return err
	}

	profile, err := matchProfile(ctx, d.API.Teachers, sess.User.Email)
	if err != nil {
		return d.fail(ctx, gen, err)
	}
	if err = d.ready(ctx, gen, func() { d.profile = profile }); err != nil {
		return err
	}

	d.spawn(ctx, gen, "students", listInto(d.API.Students, nil, &d.students))
	d.spawn(ctx, gen, "subjects", listInto(d.API.Subjects, nil, &d.subjects))
	d.spawn(ctx, gen, "exam types", listInto(d.API.ExamTypes, nil, &d.examTypes))
	d.loadGrades(ctx, gen)
	d.spawn(ctx, gen, "attendance", listInto(
		d.API.Attendance,
		core.Filter{"teacher": itoa(profile.ID)}.WithOrdering(core.Ordering{Field: "date"}),
		&d.attendance,
	))
	return nil
}

func (d *Teacher) loadGrades(ctx context.Context, gen uint64) {
	d.spawn(ctx, gen, "grades", listInto(d.API.Grades, core.Filter{}.WithOrdering(newestOrdering), &d.grades))
}

// SubmitGrade validates and records a grade, then reloads every grade.
// On failure nothing is recorded and the submitted form is kept.
func (d *Teacher) SubmitGrade(ctx context.Context, form academics.NewGrade) error {
	d.mu.Lock()
	d.form = form
	d.mu.Unlock()

	gen, err := d.readyGen()
	if err != nil {
		return err
	}
	if err = d.validate(&form); err != nil {
		return err
	}
	if _, err = d.API.Grades.Create(ctx, form); err != nil {
		return errors.Wrap(err, "creating grade")
	}

	d.mu.Lock()
	d.form = academics.NewGrade{}
	d.mu.Unlock()
	d.loadGrades(ctx, gen)
	return nil
}

// GradeForm returns the grade form as last submitted (blank after a successful submission).
func (d *Teacher) GradeForm() academics.NewGrade {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form
}

func (d *Teacher) Profile() user.Teacher {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile
}

func (d *Teacher) Students() []user.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.students)
}

func (d *Teacher) Subjects() []academics.Subject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.subjects)
}

func (d *Teacher) ExamTypes() []academics.ExamType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.examTypes)
}

func (d *Teacher) Grades() []academics.Grade {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.grades)
}

func (d *Teacher) Attendance() []academics.Attendance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyOf(d.attendance)
}

func (d *Teacher) AverageGrade() string {
	return academics.AverageGrade(d.Grades())
}
