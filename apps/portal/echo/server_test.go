package echoportal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/services/report"
	"github.com/trezcool/masomo-portal/storage/kvstore/inmem"
)

type httpTest struct {
	name     string
	method   string
	path     string
	form     url.Values
	wantCode int
	wantLoc  string
	wantBody []string
}

func checkResponse(t *testing.T, tt httpTest, v *visitor) {
	t.Helper()
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	rec := v.do(method, tt.path, tt.form)
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantLoc != "" {
		assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
	}
	for _, want := range tt.wantBody {
		assert.Contains(t, rec.Body.String(), want)
	}
}

func assertNoStore(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

// sessionKinds runs `test` against each session storage.
func sessionKinds(t *testing.T, test func(t *testing.T, school *fakeSchool, app *Server, store *inmem.Backend)) {
	t.Run("cookie", func(t *testing.T) {
		school := newFakeSchool(t)
		test(t, school, setup(t, school, nil), nil)
	})
	t.Run("memory", func(t *testing.T) {
		school := newFakeSchool(t)
		store := inmem.NewBackend()
		test(t, school, setup(t, school, store), store)
	})
}

func TestServer_anonymous(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)

	tests := []httpTest{
		{name: "healthz", path: "/healthz", wantCode: http.StatusOK, wantBody: []string{"ok"}},
		{name: "root", path: "/", wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "unknown path", path: "/nowhere/at/all", wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "login page", path: "/login", wantCode: http.StatusOK, wantBody: []string{"Connexion", `name="password"`}},
		{name: "generic dashboard", path: nav.FallbackRoute, wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "student dashboard", path: nav.StudentRoute, wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "teacher dashboard", path: nav.TeacherRoute, wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "parent dashboard", path: nav.ParentRoute, wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "manager dashboard", path: nav.ManagerRoute, wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "admin dashboard", path: nav.AdminRoute, wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "export", path: nav.ManagerRoute + "/export.xlsx", wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{name: "bulletin", path: "/documents/bulletins/7", wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute},
		{
			name: "grade submission", method: http.MethodPost, path: nav.TeacherRoute + "/grades", form: url.Values{},
			wantCode: http.StatusSeeOther, wantLoc: nav.LoginRoute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, tt, newVisitor(app))
		})
	}
	assert.Empty(t, school.requests(), "no backend call without a session")
}

func TestServer_login(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)

	tests := []httpTest{
		{
			name: "invalid form", method: http.MethodPost, path: "/login",
			form:     url.Values{"email": {"not-an-email"}, "password": {"123"}},
			wantCode: http.StatusBadRequest, wantBody: []string{"not-an-email"},
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/login",
			form:     url.Values{"email": {teacherEmail}, "password": {"wrong-password"}},
			wantCode: http.StatusBadRequest, wantBody: []string{msgAuthenticationFailed},
		},
		{
			name: "teacher", method: http.MethodPost, path: "/login",
			form:     url.Values{"email": {" Teacher@School.test "}, "password": {testPassword}},
			wantCode: http.StatusSeeOther, wantLoc: nav.TeacherRoute,
		},
		{
			name: "manager", method: http.MethodPost, path: "/login",
			form:     url.Values{"email": {managerEmail}, "password": {testPassword}},
			wantCode: http.StatusSeeOther, wantLoc: nav.ManagerRoute,
		},
		{
			name: "unknown role", method: http.MethodPost, path: "/login",
			form:     url.Values{"email": {librarianEmail}, "password": {testPassword}},
			wantCode: http.StatusSeeOther, wantLoc: nav.FallbackRoute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, tt, newVisitor(app))
		})
	}
	assert.Equal(t, 4, school.count(http.MethodPost, "/api/auth/login/"), "invalid forms are not sent")
}

func TestServer_signedInRouting(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)

	teacher := newVisitor(app)
	teacher.login(t, teacherEmail)
	librarian := newVisitor(app)
	librarian.login(t, librarianEmail)

	tests := []struct {
		httpTest
		visitor *visitor
	}{
		{httpTest{name: "login page", path: "/login", wantCode: http.StatusSeeOther, wantLoc: nav.TeacherRoute}, teacher},
		{httpTest{name: "generic dashboard", path: nav.FallbackRoute, wantCode: http.StatusSeeOther, wantLoc: nav.TeacherRoute}, teacher},
		{httpTest{name: "other role", path: nav.AdminRoute, wantCode: http.StatusSeeOther, wantLoc: nav.TeacherRoute}, teacher},
		{httpTest{name: "other role form", method: http.MethodPost, path: nav.ManagerRoute + "/invoices", form: url.Values{}, wantCode: http.StatusSeeOther, wantLoc: nav.TeacherRoute}, teacher},
		{httpTest{name: "unknown role notice", path: nav.FallbackRoute, wantCode: http.StatusOK, wantBody: []string{"librarian"}}, librarian},
		{httpTest{name: "unknown role elsewhere", path: nav.StudentRoute, wantCode: http.StatusSeeOther, wantLoc: nav.FallbackRoute}, librarian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, tt.httpTest, tt.visitor)
		})
	}
}

func TestServer_teacherFlow(t *testing.T) {
	sessionKinds(t, func(t *testing.T, school *fakeSchool, app *Server, _ *inmem.Backend) {
		v := newVisitor(app)
		v.login(t, teacherEmail)

		rec := v.get(nav.TeacherRoute)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := rec.Body.String()
		assert.Contains(t, body, "Amani Kabila")
		assert.Contains(t, body, "Mathématiques")
		assert.Contains(t, body, "Examen final")
		assert.Contains(t, body, "Saisir Notes", "role menu")
		assert.NotContains(t, body, "Gestion Financière", "other roles' menu")
		assertNoStore(t, rec)
		for _, prefix := range []string{
			"/api/accounts/teachers/",
			"/api/accounts/students/",
			"/api/academics/subjects/",
			"/api/academics/exam-types/",
			"/api/academics/grades/",
			"/api/academics/attendance/",
		} {
			assert.Equal(t, 1, school.count(http.MethodGet, prefix), prefix)
		}

		grade := func(value string) url.Values {
			return url.Values{
				"student":       {"20"},
				"subject":       {"30"},
				"exam_type":     {"40"},
				"grade":         {value},
				"trimester":     {"1"},
				"teacher_notes": {"  Bon travail  "},
			}
		}

		// out of range: rejected before any network call, form kept
		rec = v.post(nav.TeacherRoute+"/grades", grade("21"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `value="21"`)
		assert.Contains(t, rec.Body.String(), "grade must be between 0 and 20")
		assertNoStore(t, rec)
		assert.Equal(t, 0, school.count(http.MethodPost, "/api/academics/grades/"))

		gradeLists := school.count(http.MethodGet, "/api/academics/grades/")
		rec = v.post(nav.TeacherRoute+"/grades", grade("15.5"))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "Note enregistrée.")
		assertNoStore(t, rec)
		assert.Contains(t, rec.Body.String(), "15.5/20")
		assert.NotContains(t, rec.Body.String(), `value="15.5"`, "form is reset")
		require.Equal(t, 1, school.count(http.MethodPost, "/api/academics/grades/"))
		assert.Equal(t, gradeLists+2, school.count(http.MethodGet, "/api/academics/grades/"), "grades reloaded")

		var posted call
		for _, c := range school.requests() {
			if c.method == http.MethodPost && c.uri == "/api/academics/grades/" {
				posted = c
			}
		}
		assert.JSONEq(t,
			`{"student":20,"subject":30,"exam_type":40,"grade":15.5,"trimester":1,"teacher_notes":"Bon travail"}`,
			string(posted.body),
		)
		assert.True(t, strings.HasPrefix(posted.auth, "Bearer "))
	})
}

func TestServer_logout(t *testing.T) {
	sessionKinds(t, func(t *testing.T, school *fakeSchool, app *Server, store *inmem.Backend) {
		v := newVisitor(app)
		v.login(t, teacherEmail)
		if store != nil {
			assert.Equal(t, 1, store.Len())
		}

		rec := v.post("/logout", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, nav.LoginRoute, rec.Header().Get("Location"))
		if store != nil {
			assert.Equal(t, 0, store.Len(), "session cleared")
		}

		calls := len(school.requests())
		rec = v.get(nav.TeacherRoute)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, nav.LoginRoute, rec.Header().Get("Location"))
		assert.Len(t, school.requests(), calls, "no backend call after logout")
	})
}

func TestServer_unauthorizedClearsSession(t *testing.T) {
	sessionKinds(t, func(t *testing.T, school *fakeSchool, app *Server, store *inmem.Backend) {
		v := newVisitor(app)
		v.login(t, teacherEmail)
		school.revoke()

		rec := v.get(nav.TeacherRoute)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, nav.LoginRoute, rec.Header().Get("Location"))
		if store != nil {
			assert.Equal(t, 0, store.Len())
		}

		rec = v.get("/login")
		assert.Equal(t, http.StatusOK, rec.Code, "signed out")
	})
}

func TestServer_expiredAccessIsRefreshed(t *testing.T) {
	sessionKinds(t, func(t *testing.T, school *fakeSchool, app *Server, _ *inmem.Backend) {
		school.expireAccess()
		v := newVisitor(app)
		v.login(t, teacherEmail)

		rec := v.get(nav.TeacherRoute)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 1, school.count(http.MethodPost, "/api/auth/refresh/"))

		rec = v.get(nav.TeacherRoute)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 1, school.count(http.MethodPost, "/api/auth/refresh/"), "refreshed access is kept")
	})
}

func TestServer_backendDown(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)
	school.Close()

	v := newVisitor(app)
	rec := v.post("/login", url.Values{"email": {teacherEmail}, "password": {testPassword}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "injoignable")
}

// closedSessions fails every write the way a closed redis client does.
type closedSessions struct{}

func (closedSessions) For(context.Context, string) session.Storage { return closedStorage{} }

type closedStorage struct{}

func (closedStorage) Get(string) (string, bool) { return "", false }
func (closedStorage) Set(string, string) error  { return core.NewShutdownError("session storage closed") }
func (closedStorage) Remove(string) error       { return core.NewShutdownError("session storage closed") }

func TestServer_closedSessionStorageShutsDown(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, closedSessions{})

	v := newVisitor(app)
	rec := v.post("/login", url.Values{"email": {teacherEmail}, "password": {testPassword}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	select {
	case <-app.ShutdownSignal():
	default:
		t.Fatal("shutdown not signaled")
	}
}

func TestServer_student(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)
	v := newVisitor(app)
	v.login(t, studentEmail)

	rec := v.get(nav.StudentRoute)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "INV-1")
	assert.Contains(t, body, "overdue", "pending invoice past its due date")
	assert.Contains(t, body, "cash", "payment of a loaded invoice")
	assert.Contains(t, body, "N/A", "no grades yet")
	assert.Equal(t, 1, school.count(http.MethodGet, "/api/academics/grades/?ordering=-created_at&student=20"))
	assert.Equal(t, 1, school.count(http.MethodGet, "/api/finance/invoices/?ordering=-created_at&student=20"))

	rec = v.get("/documents/bulletins/7?language=ar")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bulletin_7_ar.pdf")
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, 1, school.count(http.MethodGet, "/api/documents/bulletin/7/download/?language=ar"))

	rec = v.get("/documents/bulletins/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_manager(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)
	v := newVisitor(app)
	v.login(t, managerEmail)

	rec := v.get(nav.ManagerRoute)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "INV-1")
	assert.Contains(t, body, "<p>1500.00</p>", "overdue amount")
	assert.Contains(t, body, "<p>500.00</p>", "revenue")
	assert.Equal(t, 1, school.count(http.MethodGet, "/api/accounts/profile/"))

	rec = v.post(nav.ManagerRoute+"/invoices", url.Values{"student": {"20"}, "amount": {"-5"}, "due_date": {"10/03/2024"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, 0, school.count(http.MethodPost, "/api/finance/invoices/"))

	rec = v.get(nav.ManagerRoute + "/export.xlsx")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rapport_financier_2024-03-10.xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "zip container")
	assertNoStore(t, rec)

	rec = v.post("/documents/attestations/unknown", url.Values{"student_id": {"20"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = v.post("/documents/attestations/presence", url.Values{"student_id": {"20"}, "language": {"en"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, school.count(http.MethodPost, "/api/documents/"))
}

func TestCookieSessions_roundTrip(t *testing.T) {
	school := newFakeSchool(t)
	app := setup(t, school, nil)
	v := newVisitor(app)

	rec := v.get("/login")
	assert.Empty(t, rec.Result().Cookies(), "no cookie until the session is written")

	v.login(t, teacherEmail)
	cookie, ok := v.cookies[testConfig().Session.CookieName]
	require.True(t, ok)
	assert.True(t, cookie.HttpOnly)
	assert.NotContains(t, cookie.Value, teacherEmail, "signed & encoded")

	// a tampered cookie reads as signed out
	tampered := newVisitor(app)
	tampered.cookies[cookie.Name] = &http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"}
	rec = tampered.get(nav.TeacherRoute)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, nav.LoginRoute, rec.Header().Get("Location"))
}

func TestVisitorSessions(t *testing.T) {
	store := inmem.NewBackend()
	school := newFakeSchool(t)
	app := setup(t, school, store)

	a, b := newVisitor(app), newVisitor(app)
	a.login(t, teacherEmail)
	b.get("/login")
	assert.Equal(t, 1, store.Len(), "only signed-in visitors hold data")

	assert.Equal(t, http.StatusOK, a.get(nav.TeacherRoute).Code)
	assert.Equal(t, http.StatusSeeOther, b.get(nav.TeacherRoute).Code)

	// the visitor id alone, without its storage, is signed out
	c := newVisitor(setup(t, school, inmem.NewBackend()))
	c.cookies = a.cookies
	assert.Equal(t, http.StatusSeeOther, c.get(nav.TeacherRoute).Code)
}
