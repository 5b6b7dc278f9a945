package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/user"
)

var errUnknownAttestation = errors.New("unknown attestation kind")

// Login is the only call made without a token.
func (c *Client) Login(ctx context.Context, creds user.Credentials) (user.LoginResponse, error) {
	var resp user.LoginResponse
	err := c.do(ctx, request{
		op:     "logging in",
		method: http.MethodPost,
		path:   "auth/login/",
		body:   creds,
		anon:   true,
	}, &resp)
	return resp, err
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var resp struct {
		Access string `json:"access"`
	}
	err := c.do(ctx, request{
		op:     "refreshing token",
		method: http.MethodPost,
		path:   "auth/refresh/",
		body:   map[string]string{"refresh": refresh},
		anon:   true,
	}, &resp)
	return resp.Access, err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.do(ctx, request{op: "getting profile", method: http.MethodGet, path: "accounts/profile/"}, &usr)
	return usr, err
}

func (c *Client) UpdateProfile(ctx context.Context, body interface{}) (user.User, error) {
	var usr user.User
	err := c.do(ctx, request{
		op:     "updating profile",
		method: http.MethodPatch,
		path:   "accounts/profile/",
		body:   body,
	}, &usr)
	return usr, err
}

// CalculateGrades asks the backend for the weighted averages of a student over a trimester.
func (c *Client) CalculateGrades(ctx context.Context, studentID, trimesterID int) (academics.GradeReport, error) {
	var report academics.GradeReport
	err := c.do(ctx, request{
		op:     "calculating grades",
		method: http.MethodPost,
		path:   "academics/grades/calculate/",
		body:   map[string]int{"student_id": studentID, "trimester_id": trimesterID},
	}, &report)
	return report, err
}

// DownloadBulletin returns the PDF of a bulletin; an empty `language` keeps the bulletin's own.
func (c *Client) DownloadBulletin(ctx context.Context, id int, language string) (documents.Document, error) {
	var query url.Values
	if language != "" {
		query = url.Values{"language": {language}}
	}
	return c.download(ctx, request{
		op:     "downloading bulletin",
		method: http.MethodGet,
		path:   "documents/bulletin/" + strconv.Itoa(id) + "/download/",
		query:  query,
	}, "bulletin_"+strconv.Itoa(id)+".pdf")
}

func (c *Client) PresenceAttestation(ctx context.Context, req documents.AttestationRequest) (documents.Document, error) {
	return c.Attestation(ctx, documents.AttestationPresence, req)
}

func (c *Client) InscriptionAttestation(ctx context.Context, req documents.AttestationRequest) (documents.Document, error) {
	return c.Attestation(ctx, documents.AttestationInscription, req)
}

// Attestation generates an attestation PDF of the given kind.
func (c *Client) Attestation(ctx context.Context, kind documents.AttestationKind, req documents.AttestationRequest) (documents.Document, error) {
	if !kind.Valid() {
		return documents.Document{}, errors.Wrap(errUnknownAttestation, string(kind))
	}
	return c.download(ctx, request{
		op:     "generating " + string(kind) + " attestation",
		method: http.MethodPost,
		path:   "documents/attestation-" + string(kind) + "/",
		body:   req,
	}, "attestation_"+string(kind)+"_"+strconv.Itoa(req.StudentID)+".pdf")
}
