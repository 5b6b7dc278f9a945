package echoportal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/dashboard"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/report"
)

func registerDashboardRoutes(g *echo.Group, p *portal) {
	sg := g.Group(nav.StudentRoute, p.sessionMiddleware(user.RoleStudent))
	sg.GET("", p.studentDashboard)

	tg := g.Group(nav.TeacherRoute, p.sessionMiddleware(user.RoleTeacher))
	tg.GET("", p.teacherDashboard)
	tg.POST("/grades", p.submitGrade)

	pg := g.Group(nav.ParentRoute, p.sessionMiddleware(user.RoleParent))
	pg.GET("", p.parentDashboard)

	mg := g.Group(nav.ManagerRoute, p.sessionMiddleware(user.RoleManager))
	mg.GET("", p.managerDashboard)
	mg.POST("/invoices", p.addInvoice)
	mg.POST("/payments", p.addPayment)
	mg.GET("/export.xlsx", p.exportFinances)

	ag := g.Group(nav.AdminRoute, p.sessionMiddleware(user.RoleAdministrator))
	ag.GET("", p.adminDashboard)
	ag.POST("/classes", p.addClass)
	ag.POST("/subjects", p.addSubject)
}

// =========================================================================
// Student

type studentView struct {
	Profile   user.Student
	Grades    []academics.Grade
	Invoices  []finance.Invoice
	Payments  []finance.Payment
	Bulletins []documents.Bulletin
	Average   string
	Pending   float64
	Overdue   float64
	Now       time.Time
}

func (p *portal) studentDashboard(ctx echo.Context) error {
	d := dashboard.NewStudent(p.deps(ctx))
	defer d.Close()
	if err := open(ctx, d); err != nil {
		return err
	}

	pg := newPage(ctx, "Espace Étudiant")
	pg.Data = studentView{
		Profile:   d.Profile(),
		Grades:    d.Grades(),
		Invoices:  d.Invoices(),
		Payments:  d.Payments(),
		Bulletins: d.Bulletins(),
		Average:   d.AverageGrade(),
		Pending:   d.PendingAmount(),
		Overdue:   d.OverdueAmount(),
		Now:       p.now(),
	}
	return ctx.Render(http.StatusOK, "student.html", pg)
}

// =========================================================================
// Teacher

type teacherView struct {
	Profile    user.Teacher
	Students   []user.Student
	Subjects   []academics.Subject
	ExamTypes  []academics.ExamType
	Grades     []academics.Grade
	Attendance []academics.Attendance
	Average    string
	Form       academics.NewGrade
}

func (p *portal) teacherDashboard(ctx echo.Context) error {
	d := dashboard.NewTeacher(p.deps(ctx))
	defer d.Close()
	if err := open(ctx, d); err != nil {
		return err
	}
	return p.renderTeacher(ctx, d, http.StatusOK, newPage(ctx, "Espace Enseignant"))
}

func (p *portal) submitGrade(ctx echo.Context) error {
	d := dashboard.NewTeacher(p.deps(ctx))
	defer d.Close()
	if err := d.Open(ctx.Request().Context(), getStore(ctx)); err != nil {
		return err
	}

	err := d.SubmitGrade(ctx.Request().Context(), bindNewGrade(ctx))
	d.Wait()
	pg, code, err := formOutcome(ctx, "Espace Enseignant", "Note enregistrée.", err)
	if err != nil {
		return err
	}
	return p.renderTeacher(ctx, d, code, pg)
}

func (p *portal) renderTeacher(ctx echo.Context, d *dashboard.Teacher, code int, pg page) error {
	pg.Data = teacherView{
		Profile:    d.Profile(),
		Students:   d.Students(),
		Subjects:   d.Subjects(),
		ExamTypes:  d.ExamTypes(),
		Grades:     d.Grades(),
		Attendance: d.Attendance(),
		Average:    d.AverageGrade(),
		Form:       d.GradeForm(),
	}
	return ctx.Render(code, "teacher.html", pg)
}

// =========================================================================
// Parent

type parentView struct {
	Profile   user.Parent
	Children  []user.Student
	Selected  user.Student
	HasChild  bool
	Grades    []academics.Grade
	Invoices  []finance.Invoice
	Payments  []finance.Payment
	Bulletins []documents.Bulletin
	Average   string
	Pending   float64
	Overdue   float64
	Now       time.Time
}

// parentDashboard shows the child given by the `child` query param (the first child by default).
func (p *portal) parentDashboard(ctx echo.Context) error {
	childID, _ := strconv.Atoi(ctx.QueryParam("child"))

	d := dashboard.NewParent(p.deps(ctx))
	defer d.Close()
	if err := d.OpenChild(ctx.Request().Context(), getStore(ctx), childID); err != nil {
		return err
	}
	d.Wait()

	selected, ok := d.SelectedChild()
	pg := newPage(ctx, "Espace Parent")
	pg.Data = parentView{
		Profile:   d.Profile(),
		Children:  d.Children(),
		Selected:  selected,
		HasChild:  ok,
		Grades:    d.Grades(),
		Invoices:  d.Invoices(),
		Payments:  d.Payments(),
		Bulletins: d.Bulletins(),
		Average:   d.AverageGrade(),
		Pending:   d.PendingAmount(),
		Overdue:   d.OverdueAmount(),
		Now:       p.now(),
	}
	return ctx.Render(http.StatusOK, "parent.html", pg)
}

// =========================================================================
// Manager

type managerView struct {
	Account     user.User
	Students    []user.Student
	Invoices    []finance.Invoice
	Payments    []finance.Payment
	Revenue     float64
	Pending     float64
	Overdue     float64
	InvoiceForm finance.NewInvoice
	PaymentForm finance.NewPayment
	Methods     []string
	Now         time.Time
}

func (p *portal) managerDashboard(ctx echo.Context) error {
	d := dashboard.NewManager(p.deps(ctx))
	defer d.Close()
	if err := open(ctx, d); err != nil {
		return err
	}
	return p.renderManager(ctx, d, http.StatusOK, newPage(ctx, "Espace Gestionnaire"))
}

func (p *portal) addInvoice(ctx echo.Context) error {
	d := dashboard.NewManager(p.deps(ctx))
	defer d.Close()
	if err := d.Open(ctx.Request().Context(), getStore(ctx)); err != nil {
		return err
	}

	err := d.AddInvoice(ctx.Request().Context(), bindNewInvoice(ctx))
	d.Wait()
	pg, code, err := formOutcome(ctx, "Espace Gestionnaire", "Facture créée.", err)
	if err != nil {
		return err
	}
	return p.renderManager(ctx, d, code, pg)
}

func (p *portal) addPayment(ctx echo.Context) error {
	d := dashboard.NewManager(p.deps(ctx))
	defer d.Close()
	if err := d.Open(ctx.Request().Context(), getStore(ctx)); err != nil {
		return err
	}

	err := d.AddPayment(ctx.Request().Context(), bindNewPayment(ctx))
	d.Wait()
	pg, code, err := formOutcome(ctx, "Espace Gestionnaire", "Paiement enregistré.", err)
	if err != nil {
		return err
	}
	return p.renderManager(ctx, d, code, pg)
}

func (p *portal) renderManager(ctx echo.Context, d *dashboard.Manager, code int, pg page) error {
	pg.Data = managerView{
		Account:     d.Account(),
		Students:    d.Students(),
		Invoices:    d.Invoices(),
		Payments:    d.Payments(),
		Revenue:     d.TotalRevenue(),
		Pending:     d.PendingAmount(),
		Overdue:     d.OverdueAmount(),
		InvoiceForm: d.InvoiceForm(),
		PaymentForm: d.PaymentForm(),
		Methods:     finance.PaymentMethods,
		Now:         p.now(),
	}
	return ctx.Render(code, "manager.html", pg)
}

// exportFinances downloads the invoices and payments as a spreadsheet.
func (p *portal) exportFinances(ctx echo.Context) error {
	d := dashboard.NewManager(p.deps(ctx))
	defer d.Close()
	if err := open(ctx, d); err != nil {
		return err
	}

	fin := report.Finance{
		Students: d.Students(),
		Invoices: d.Invoices(),
		Payments: d.Payments(),
		Now:      p.now(),
	}
	data, err := report.FinanceXLSX(fin)
	if err != nil {
		return errors.Wrap(err, "exporting finances")
	}
	return attachment(ctx, report.XLSXContentType, fin.Filename(), data)
}

// =========================================================================
// Administrator

type adminView struct {
	Account     user.User
	Counts      dashboard.Counts
	Students    []user.Student
	Teachers    []user.Teacher
	Parents     []user.Parent
	Levels      []academics.Level
	Classes     []academics.Class
	Subjects    []academics.Subject
	ClassForm   academics.NewClass
	SubjectForm academics.NewSubject
}

func (p *portal) adminDashboard(ctx echo.Context) error {
	d := dashboard.NewAdmin(p.deps(ctx))
	defer d.Close()
	if err := open(ctx, d); err != nil {
		return err
	}
	return p.renderAdmin(ctx, d, http.StatusOK, newPage(ctx, "Administration"))
}

func (p *portal) addClass(ctx echo.Context) error {
	d := dashboard.NewAdmin(p.deps(ctx))
	defer d.Close()
	if err := d.Open(ctx.Request().Context(), getStore(ctx)); err != nil {
		return err
	}

	err := d.AddClass(ctx.Request().Context(), bindNewClass(ctx))
	d.Wait()
	pg, code, err := formOutcome(ctx, "Administration", "Classe créée.", err)
	if err != nil {
		return err
	}
	return p.renderAdmin(ctx, d, code, pg)
}

func (p *portal) addSubject(ctx echo.Context) error {
	d := dashboard.NewAdmin(p.deps(ctx))
	defer d.Close()
	if err := d.Open(ctx.Request().Context(), getStore(ctx)); err != nil {
		return err
	}

	err := d.AddSubject(ctx.Request().Context(), bindNewSubject(ctx))
	d.Wait()
	pg, code, err := formOutcome(ctx, "Administration", "Matière créée.", err)
	if err != nil {
		return err
	}
	return p.renderAdmin(ctx, d, code, pg)
}

func (p *portal) renderAdmin(ctx echo.Context, d *dashboard.Admin, code int, pg page) error {
	pg.Data = adminView{
		Account:     d.Account(),
		Counts:      d.Counts(),
		Students:    d.Students(),
		Teachers:    d.Teachers(),
		Parents:     d.Parents(),
		Levels:      d.Levels(),
		Classes:     d.Classes(),
		Subjects:    d.Subjects(),
		ClassForm:   d.ClassForm(),
		SubjectForm: d.SubjectForm(),
	}
	return ctx.Render(code, "admin.html", pg)
}

// formOutcome turns the result of a form submission into the page to render:
// a flash on success, the field messages (400) on a rejected form. Other errors are returned.
func formOutcome(ctx echo.Context, title, success string, err error) (page, int, error) {
	pg := newPage(ctx, title)
	if err == nil {
		pg.Flash = success
		return pg, http.StatusOK, nil
	}
	fields, ok := formErrors(err)
	if !ok {
		return pg, 0, err
	}
	pg.Error = formMessage(err)
	pg.Errors = fields
	return pg, http.StatusBadRequest, nil
}
