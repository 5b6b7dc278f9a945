package echoportal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/backend"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
)

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

const (
	testPassword   = "secret123"
	teacherEmail   = "teacher@school.test"
	managerEmail   = "manager@school.test"
	studentEmail   = "student@school.test"
	librarianEmail = "librarian@school.test"
)

const (
	teachersJSON = `[{"id":10,"user":{"id":1,"first_name":"Jean","last_name":"Mukendi","email":"teacher@school.test"},"teacher_id":"T-001","is_active":true}]`
	studentsJSON = `{"count":1,"results":[{"id":20,"user":{"id":3,"first_name":"Amani","last_name":"Kabila","email":"student@school.test"},"student_id":"S-001"}]}`
	subjectsJSON = `[{"id":30,"name":"Mathématiques","code":"MATH","coefficient":"2.00","is_active":true}]`
	examsJSON    = `[{"id":40,"name":"Examen final","percentage":"60.00"}]`
	invoicesJSON = `[{"id":50,"invoice_number":"INV-1","invoice_type":"tuition","student":20,"amount":"1500.00","due_date":"2024-03-01","status":"pending","created_at":"2024-02-01T08:00:00Z"}]`
	paymentsJSON = `[{"id":60,"invoice":50,"amount":"500.00","payment_method":"cash","payment_date":"2024-03-05","status":"completed"}]`
	bulletinJSON = `[{"id":7,"student":20,"academic_year":"2023-2024","trimester":"T1","class_name":"6A","language":"fr","total_average":"14.50"}]`
)

type call struct {
	method string
	uri    string
	auth   string
	body   []byte
}

// fakeSchool is an in-memory school backend.
type fakeSchool struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]user.User // by email
	access   map[string]user.User // by access token
	refresh  map[string]user.User // by refresh token
	expired  bool                 // log in with expired access tokens
	issued   int
	grades   []map[string]interface{}
	calls    []call
}

func newFakeSchool(t *testing.T) *fakeSchool {
	s := &fakeSchool{
		accounts: map[string]user.User{
			teacherEmail:   {ID: 1, Email: teacherEmail, Role: user.RoleTeacher, FirstName: "Jean", LastName: "Mukendi"},
			managerEmail:   {ID: 2, Email: managerEmail, Role: user.RoleManager, FirstName: "Grace", LastName: "Ilunga"},
			studentEmail:   {ID: 3, Email: studentEmail, Role: user.RoleStudent, FirstName: "Amani", LastName: "Kabila"},
			librarianEmail: {ID: 5, Email: librarianEmail, Role: "librarian", FirstName: "Paul", LastName: "Tshibanda"},
		},
		access:  make(map[string]user.User),
		refresh: make(map[string]user.User),
	}
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

// issue signs a token for `usr`; access tokens expire an hour after (or before, when `expired`) testNow.
func (s *fakeSchool) issue(usr user.User, expired bool) string {
	s.issued++
	exp := testNow.Add(time.Hour)
	if expired {
		exp = testNow.Add(-time.Hour)
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        strconv.Itoa(s.issued),
		Subject:   strconv.Itoa(usr.ID),
		ExpiresAt: exp.Unix(),
	}).SignedString([]byte("school-secret"))
	return token
}

// expireAccess makes the next logins issue expired access tokens.
func (s *fakeSchool) expireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// revoke invalidates every access token.
func (s *fakeSchool) revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]user.User)
}

func (s *fakeSchool) requests() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

// count returns how many requests matched `method` on a uri starting with `prefix`.
func (s *fakeSchool) count(method, prefix string) int {
	n := 0
	for _, c := range s.requests() {
		if c.method == method && strings.HasPrefix(c.uri, prefix) {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *fakeSchool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{
		method: r.Method,
		uri:    r.URL.RequestURI(),
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})

	path := strings.TrimPrefix(r.URL.Path, "/api/")
	switch path {
	case "auth/login/":
		s.login(w, body)
		return
	case "auth/refresh/":
		s.refreshAccess(w, body)
		return
	}

	usr, ok := s.access[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Given token not valid for any token type"}`)
		return
	}

	switch {
	case path == "accounts/profile/":
		data, _ := json.Marshal(usr)
		writeJSON(w, http.StatusOK, string(data))
	case path == "accounts/teachers/":
		writeJSON(w, http.StatusOK, teachersJSON)
	case path == "accounts/students/":
		writeJSON(w, http.StatusOK, studentsJSON)
	case path == "academics/subjects/":
		writeJSON(w, http.StatusOK, subjectsJSON)
	case path == "academics/exam-types/":
		writeJSON(w, http.StatusOK, examsJSON)
	case path == "academics/attendance/":
		writeJSON(w, http.StatusOK, `[]`)
	case path == "academics/grades/" && r.Method == http.MethodPost:
		var grade map[string]interface{}
		if err := json.Unmarshal(body, &grade); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"detail":"JSON parse error"}`)
			return
		}
		grade["id"] = len(s.grades) + 1
		s.grades = append(s.grades, grade)
		data, _ := json.Marshal(grade)
		writeJSON(w, http.StatusCreated, string(data))
	case path == "academics/grades/":
		data, _ := json.Marshal(append([]map[string]interface{}{}, s.grades...))
		writeJSON(w, http.StatusOK, string(data))
	case path == "finance/invoices/":
		writeJSON(w, http.StatusOK, invoicesJSON)
	case path == "finance/payments/":
		writeJSON(w, http.StatusOK, paymentsJSON)
	case path == "documents/bulletins/":
		writeJSON(w, http.StatusOK, bulletinJSON)
	case path == "documents/bulletin/7/download/":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="bulletin_7_`+r.URL.Query().Get("language")+`.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.4")
	default:
		writeJSON(w, http.StatusNotFound, `{"detail":"Not found."}`)
	}
}

func (s *fakeSchool) login(w http.ResponseWriter, body []byte) {
	var creds user.Credentials
	_ = json.Unmarshal(body, &creds)
	usr, ok := s.accounts[creds.Email]
	if !ok || creds.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`)
		return
	}
	access, refresh := s.issue(usr, s.expired), s.issue(usr, false)
	s.access[access] = usr
	s.refresh[refresh] = usr
	data, _ := json.Marshal(user.LoginResponse{Access: access, Refresh: refresh, User: usr})
	writeJSON(w, http.StatusOK, string(data))
}

func (s *fakeSchool) refreshAccess(w http.ResponseWriter, body []byte) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	_ = json.Unmarshal(body, &req)
	usr, ok := s.refresh[req.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`)
		return
	}
	access := s.issue(usr, false)
	s.access[access] = usr
	writeJSON(w, http.StatusOK, `{"access":"`+access+`"}`)
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:  "Masomo",
		Env:      "TEST",
		TestMode: true,
		Server:   core.ServerConfig{DisableReqLogs: true},
		Session: core.SessionConfig{
			CookieName: "masomo_session",
			HashKey:    "test-hash-key-with-enough-entropy",
			MaxAge:     time.Hour,
		},
	}
}

// setup starts a portal in front of `school`; nil `sessions` keeps sessions in the cookie.
func setup(t *testing.T, school *fakeSchool, sessions session.Backend) *Server {
	validate, translator := core.NewValidator()
	academics.InitValidators(validate, translator)
	srv, err := NewServer(ServerDeps{
		Conf:       testConfig(),
		Logger:     logsvc.NewDiscardLogger(),
		Backend:    backend.New(school.URL + "/api"),
		Sessions:   sessions,
		Validate:   validate,
		Translator: translator,
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return srv
}

// visitor is a browser with a cookie jar.
type visitor struct {
	app     *Server
	cookies map[string]*http.Cookie
}

func newVisitor(app *Server) *visitor {
	return &visitor{app: app, cookies: make(map[string]*http.Cookie)}
}

func (v *visitor) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for _, c := range v.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	v.app.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(v.cookies, c.Name)
		} else {
			v.cookies[c.Name] = c
		}
	}
	return rec
}

func (v *visitor) get(path string) *httptest.ResponseRecorder {
	return v.do(http.MethodGet, path, nil)
}

func (v *visitor) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return v.do(http.MethodPost, path, form)
}

func (v *visitor) login(t *testing.T, email string) *httptest.ResponseRecorder {
	rec := v.post("/login", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return rec
}
