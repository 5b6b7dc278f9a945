package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/backend"
)

// sessionMiddleware lets signed-in visitors through, renewing an expired access token on the way.
// With `roles`, visitors of any other role are sent to their own dashboard.
// Responses behind it are never stored by the browser.
func (p *portal) sessionMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			store := getStore(ctx)
			sess, ok := store.Load()
			if !ok {
				return ctx.Redirect(http.StatusSeeOther, nav.LoginRoute)
			}
			if len(roles) > 0 && !hasRole(roles, sess.User.Role) {
				return ctx.Redirect(http.StatusSeeOther, nav.TargetRoute(sess.User.Role))
			}
			noStore(ctx.Response().Header())

			if sess.AccessExpired(p.now()) {
				access, err := p.client.RefreshToken(ctx.Request().Context(), sess.Refresh)
				switch {
				case backend.IsUnauthorized(err) || backend.IsValidationRejected(err):
					// the refresh token expired too
					return p.logout(ctx)
				case err != nil:
					return errors.Wrap(err, "refreshing access token")
				}
				if err = store.SetAccess(access); err != nil {
					return errors.Wrap(err, "storing access token")
				}
			}
			return next(ctx)
		}
	}
}

func noStore(h http.Header) {
	h.Set(echo.HeaderCacheControl, "no-store")
	h.Set("Pragma", "no-cache")
}

func hasRole(roles []user.Role, role user.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
