package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/dashboard"
	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/services/backend"
)

const (
	msgBackendDown     = "Le serveur de l'école est injoignable. Réessayez plus tard."
	msgBackendFault    = "Le serveur de l'école a rencontré une erreur."
	msgProfileNotFound = "Aucun profil ne correspond à votre compte."
	msgNotFound        = "Page introuvable."
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		// a missing or rejected session sends the visitor back to the login page
		if errors.Is(err, dashboard.ErrNotAuthenticated) || backend.IsUnauthorized(err) {
			if _, cErr := nav.Logout(getStore(ctx)); cErr != nil {
				logger.Error("logging out", cErr)
			}
			if rErr := ctx.Redirect(http.StatusSeeOther, nav.LoginRoute); rErr != nil {
				ctx.Echo().Logger.Error(rErr)
			}
			return
		}

		var code int
		var message string
		var fields map[string]string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			fields = origErr.FieldMap()
		case *backend.Error:
			switch origErr.Kind {
			case backend.NetworkUnreachable:
				code = http.StatusServiceUnavailable
				message = msgBackendDown
			case backend.ValidationRejected:
				code = origErr.Status
				if code == http.StatusNotFound {
					message = msgNotFound
				} else {
					message = origErr.Message
					fields = origErr.ValidationError().FieldMap()
				}
			default:
				code = http.StatusBadGateway
				message = msgBackendFault
				logger.Error(message, err, sessionUser(ctx))
			}
		default:
			switch {
			case errors.Is(err, dashboard.ErrProfileNotFound):
				code = http.StatusNotFound
				message = msgProfileNotFound
			case errors.Is(err, dashboard.ErrClosed):
				// the visitor went away before the page was ready
				code = http.StatusServiceUnavailable
				message = http.StatusText(code)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(code)
				logger.Error(message, errors.Wrap(err, message), sessionUser(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			pg := newPage(ctx, "Erreur")
			pg.Error = message
			pg.Errors = fields
			pg.Data = code
			err = ctx.Render(code, "error.html", pg)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
