package echoportal

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/user"
)

var errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, msgNotFound)

func registerDocumentRoutes(g *echo.Group, p *portal) {
	dg := g.Group("/documents")
	dg.GET("/bulletins/:id", p.downloadBulletin,
		p.sessionMiddleware(user.RoleStudent, user.RoleParent, user.RoleManager, user.RoleAdministrator))
	dg.POST("/attestations/:kind", p.generateAttestation,
		p.sessionMiddleware(user.RoleManager, user.RoleAdministrator))
}

// downloadBulletin streams a bulletin PDF; the backend decides whether the visitor may read it.
func (p *portal) downloadBulletin(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return errHttpNotFound
	}

	doc, err := p.visitorClient(ctx).DownloadBulletin(ctx.Request().Context(), id, ctx.QueryParam("language"))
	if err != nil {
		return err
	}
	return attachment(ctx, doc.ContentType, doc.Filename, doc.Data)
}

func (p *portal) generateAttestation(ctx echo.Context) error {
	kind := documents.AttestationKind(ctx.Param("kind"))
	if !kind.Valid() {
		return errHttpNotFound
	}

	req := bindAttestationRequest(ctx)
	if err := req.Validate(p.validate, p.translator); err != nil {
		return err
	}

	doc, err := p.visitorClient(ctx).Attestation(ctx.Request().Context(), kind, req)
	if err != nil {
		return errors.Wrap(err, "generating attestation")
	}
	return attachment(ctx, doc.ContentType, doc.Filename, doc.Data)
}

// attachment sends `data` as a file download.
func attachment(ctx echo.Context, contentType, filename string, data []byte) error {
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": filename}),
	)
	return ctx.Blob(http.StatusOK, contentType, data)
}

