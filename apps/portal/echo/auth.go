package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/services/backend"
)

const msgAuthenticationFailed = "Email ou mot de passe incorrect."

func registerAuthRoutes(g *echo.Group, p *portal) {
	g.GET("/", func(ctx echo.Context) error {
		return ctx.Redirect(http.StatusSeeOther, nav.LoginRoute)
	})
	g.GET(nav.LoginRoute, p.loginPage)
	g.POST(nav.LoginRoute, p.login)
	g.POST("/logout", p.logout)
	g.GET(nav.FallbackRoute, p.dashboardEntry, p.sessionMiddleware())
}

type loginView struct {
	Email string
}

// loginPage sends signed-in visitors straight to their dashboard.
func (p *portal) loginPage(ctx echo.Context) error {
	if sess, ok := getStore(ctx).Load(); ok {
		return ctx.Redirect(http.StatusSeeOther, nav.TargetRoute(sess.User.Role))
	}
	return ctx.Render(http.StatusOK, "login.html", newPage(ctx, "Connexion"))
}

func (p *portal) login(ctx echo.Context) error {
	creds := bindCredentials(ctx)
	creds.Clean()

	renderFailure := func(message string, fields map[string]string) error {
		pg := newPage(ctx, "Connexion")
		pg.Error = message
		pg.Errors = fields
		pg.Data = loginView{Email: creds.Email}
		return ctx.Render(http.StatusBadRequest, "login.html", pg)
	}

	if err := core.ValidateStruct(p.validate, p.translator, &creds); err != nil {
		if fields, ok := formErrors(err); ok {
			return renderFailure("", fields)
		}
		return err
	}

	resp, err := p.client.Login(ctx.Request().Context(), creds)
	switch {
	case backend.IsUnauthorized(err) || backend.IsValidationRejected(err):
		return renderFailure(msgAuthenticationFailed, nil)
	case err != nil:
		return errors.Wrap(err, "logging in")
	}

	if err = getStore(ctx).Save(resp.Tokens(), resp.User); err != nil {
		return errors.Wrap(err, "saving session")
	}
	return ctx.Redirect(http.StatusSeeOther, nav.TargetRoute(resp.User.Role))
}

// logout clears the session before leaving the page.
func (p *portal) logout(ctx echo.Context) error {
	route, err := nav.Logout(getStore(ctx))
	if err != nil {
		p.logger.Error("logging out", err, sessionUser(ctx))
	}
	return ctx.Redirect(http.StatusSeeOther, route)
}

// dashboardEntry re-routes to the role's dashboard; roles without one get a notice.
func (p *portal) dashboardEntry(ctx echo.Context) error {
	sess, _ := getStore(ctx).Load()
	if route := nav.TargetRoute(sess.User.Role); route != nav.FallbackRoute {
		return ctx.Redirect(http.StatusSeeOther, route)
	}
	return ctx.Render(http.StatusOK, "dashboard.html", newPage(ctx, "Tableau de bord"))
}
