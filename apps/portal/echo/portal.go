package echoportal

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/dashboard"
	"github.com/trezcool/masomo-portal/services/backend"
)

// portal holds the dependencies of the page handlers.
type portal struct {
	logger     core.Logger
	client     *backend.Client
	validate   *validator.Validate
	translator ut.Translator
	now        func() time.Time
}

// visitorClient returns the backend client authenticated as the visitor.
func (p *portal) visitorClient(ctx echo.Context) *backend.Client {
	return p.client.WithTokens(getStore(ctx))
}

func (p *portal) deps(ctx echo.Context) dashboard.Deps {
	return dashboard.Deps{
		API:        p.visitorClient(ctx).DashboardAPI(),
		Logger:     p.logger,
		Validate:   p.validate,
		Translator: p.translator,
		Now:        p.now,
	}
}

// opener is implemented by every dashboard.
type opener interface {
	Open(ctx context.Context, store dashboard.SessionLoader) error
	Wait()
}

// open loads dashboard `d` for the visitor and waits for its collections.
func open(ctx echo.Context, d opener) error {
	if err := d.Open(ctx.Request().Context(), getStore(ctx)); err != nil {
		return err
	}
	d.Wait()
	return nil
}

// formErrors extracts the field messages of a rejected form, either by local validation or by the backend.
func formErrors(err error) (map[string]string, bool) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return vErr.FieldMap(), true
	}
	var bErr *backend.Error
	if errors.As(err, &bErr) && bErr.Kind == backend.ValidationRejected {
		return bErr.ValidationError().FieldMap(), true
	}
	return nil, false
}

// formMessage is the message shown above a rejected form.
func formMessage(err error) string {
	var bErr *backend.Error
	if errors.As(err, &bErr) && bErr.Message != "" {
		return bErr.Message
	}
	return "Le formulaire contient des erreurs."
}
