package echoportal

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/dashboard"
	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/core/user"
)

//go:embed templates/*.html
var templateFS embed.FS

// renderer executes the embedded page templates; every page shares the layout blocks.
type renderer struct {
	tmpl *template.Template
}

func newRenderer() (*renderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}
	return &renderer{tmpl: tmpl}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

var templateFuncs = template.FuncMap{
	"money":       money,
	"date":        formatDate,
	"statusClass": statusClass,
	"tierClass":   tierClass,
	"roleName":    nav.RoleDisplayName,
	"same":        same,
	"deref":       deref,
	"list":        list,
}

func statusClass(status interface{}) string {
	return dashboard.StatusClass(fmt.Sprint(status))
}

func tierClass(grade core.Number) string {
	return academics.GradeTier(grade.Float()).Class()
}

// same compares values by their printed form (named string types against literals).
func same(a, b interface{}) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func list(items ...string) []string { return items }

func deref(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// money formats an amount with 2 decimals.
func money(amount interface{}) string {
	var f float64
	switch v := amount.(type) {
	case float64:
		f = v
	case core.Number:
		f = v.Float()
	case int:
		f = float64(v)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatDate(v interface{}) string {
	switch d := v.(type) {
	case core.Date:
		return d.String()
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format("02/01/2006")
	}
	return ""
}

// page is the data every template receives.
type page struct {
	Title    string
	User     user.User
	SignedIn bool
	RoleName string
	Menu     []nav.MenuItem
	Flash    string
	Error    string
	Errors   map[string]string
	Data     interface{}
}

// newPage fills the navigation shell from the visitor's session.
func newPage(ctx echo.Context, title string) page {
	pg := page{Title: title}
	if sess, ok := getStore(ctx).Load(); ok {
		pg.User = sess.User
		pg.SignedIn = true
		pg.RoleName = nav.RoleDisplayName(sess.User.Role)
		pg.Menu = nav.MenuFor(nav.Menu, sess.User.Role)
	}
	return pg
}

// sessionUser returns the signed-in user (zero if none), for error reports.
func sessionUser(ctx echo.Context) user.User {
	sess, _ := getStore(ctx).Load()
	return sess.User
}
