// Package backend is the typed REST client of the school backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/user"
)

// TokenSource yields the access token to send ("" sends none).
type TokenSource interface {
	AccessToken() string
}

type noTokens struct{}

func (noTokens) AccessToken() string { return "" }

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = timeout
		c.http = &hc
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  core.Logger

	Students       *Resource[user.Student]
	Teachers       *Resource[user.Teacher]
	Parents        *Resource[user.Parent]
	ParentStudents *Resource[user.ParentStudent]
	Grades         *Resource[academics.Grade]
	Attendance     *Resource[academics.Attendance]
	Subjects       *Resource[academics.Subject]
	ExamTypes      *Resource[academics.ExamType]
	Levels         *Resource[academics.Level]
	Classes        *Resource[academics.Class]
	Bulletins      *Resource[documents.Bulletin]
	Invoices       *Resource[finance.Invoice]
	Payments       *Resource[finance.Payment]
}

// New returns an unauthenticated Client of the API rooted at `baseURL` (eg. http://localhost:8000/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  noTokens{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bindResources()
	return c
}

// WithTokens returns a copy of the Client authenticating with `ts`.
func (c *Client) WithTokens(ts TokenSource) *Client {
	if ts == nil {
		ts = noTokens{}
	}
	cc := *c
	cc.tokens = ts
	cc.bindResources()
	return &cc
}

func (c *Client) bindResources() {
	c.Students = newResource[user.Student](c, "accounts/students/")
	c.Teachers = newResource[user.Teacher](c, "accounts/teachers/")
	c.Parents = newResource[user.Parent](c, "accounts/parents/")
	c.ParentStudents = newResource[user.ParentStudent](c, "accounts/parent-students/")
	c.Grades = newResource[academics.Grade](c, "academics/grades/")
	c.Attendance = newResource[academics.Attendance](c, "academics/attendance/")
	c.Subjects = newResource[academics.Subject](c, "academics/subjects/")
	c.ExamTypes = newResource[academics.ExamType](c, "academics/exam-types/")
	c.Levels = newResource[academics.Level](c, "academics/levels/")
	c.Classes = newResource[academics.Class](c, "academics/classes/")
	c.Bulletins = newResource[documents.Bulletin](c, "documents/bulletins/")
	c.Invoices = newResource[finance.Invoice](c, "finance/invoices/")
	c.Payments = newResource[finance.Payment](c, "finance/payments/")
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	anon   bool // no Authorization header
}

func (c *Client) newHTTPRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(r.path, "/")
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.anon {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// send performs the call and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, r request) (*http.Response, []byte, error) {
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return nil, nil, errors.Wrap(err, r.op)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, errors.Wrap(ctxErr, r.op)
		}
		return nil, nil, &Error{Op: r.op, Kind: NetworkUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, errors.Wrap(ctxErr, r.op)
		}
		return nil, nil, &Error{Op: r.op, Kind: NetworkUnreachable, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		bErr := newResponseError(r.op, resp.StatusCode, data)
		if c.logger != nil && bErr.Kind == ServerFault {
			c.logger.Warn(bErr.Error(), map[string]interface{}{"method": r.method, "path": r.path})
		}
		return resp, nil, bErr
	}
	return resp, data, nil
}

// do performs a JSON call and decodes the response into `out` (if not nil).
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	_, data, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(data, out), "%s: decoding response", r.op)
}

// download performs a call answered with a binary payload.
func (c *Client) download(ctx context.Context, r request, fallbackName string) (documents.Document, error) {
	resp, data, err := c.send(ctx, r)
	if err != nil {
		return documents.Document{}, err
	}
	doc := documents.Document{
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    fallbackName,
		Data:        data,
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/octet-stream"
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			doc.Filename = params["filename"]
		}
	}
	return doc, nil
}
