package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

var errBackendDown = errors.New("backend down")

// fakeCollection is an in-memory Collection recording every call.
type fakeCollection[T any] struct {
	mu        sync.Mutex
	items     []T
	filterBy  func(item T, filter core.Filter) bool
	err       error
	createErr error
	gate      chan struct{} // List blocks until closed, when set
	onList    func(filter core.Filter)
	lists     []core.Filter
	creates   []interface{}
}

func (f *fakeCollection[T]) List(ctx context.Context, filter core.Filter) ([]T, error) {
	f.mu.Lock()
	f.lists = append(f.lists, filter)
	gate, onList := f.gate, f.onList
	f.mu.Unlock()

	if onList != nil {
		onList(filter)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	items := make([]T, 0, len(f.items))
	for _, item := range f.items {
		if f.filterBy == nil || f.filterBy(item, filter) {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeCollection[T]) Create(_ context.Context, body interface{}) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	f.creates = append(f.creates, body)
	if f.createErr != nil {
		return zero, f.createErr
	}
	return zero, nil
}

func (f *fakeCollection[T]) listCalls() []core.Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Filter(nil), f.lists...)
}

func (f *fakeCollection[T]) createCalls() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.creates...)
}

func (f *fakeCollection[T]) set(items []T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items, f.err = items, err
}

type fakeProfile struct {
	usr   user.User
	err   error
	calls int
}

func (f *fakeProfile) Profile(context.Context) (user.User, error) {
	f.calls++
	return f.usr, f.err
}

type fakeAPI struct {
	profile        *fakeProfile
	students       *fakeCollection[user.Student]
	teachers       *fakeCollection[user.Teacher]
	parents        *fakeCollection[user.Parent]
	parentStudents *fakeCollection[user.ParentStudent]
	grades         *fakeCollection[academics.Grade]
	attendance     *fakeCollection[academics.Attendance]
	subjects       *fakeCollection[academics.Subject]
	examTypes      *fakeCollection[academics.ExamType]
	levels         *fakeCollection[academics.Level]
	classes        *fakeCollection[academics.Class]
	bulletins      *fakeCollection[documents.Bulletin]
	invoices       *fakeCollection[finance.Invoice]
	payments       *fakeCollection[finance.Payment]
}

func newFakeAPI() *fakeAPI {
	studentParam := func(filter core.Filter, ref core.Ref) bool {
		id, ok := filter["student"]
		return !ok || id == itoa(ref.ID)
	}
	return &fakeAPI{
		profile:  &fakeProfile{},
		students: &fakeCollection[user.Student]{},
		teachers: &fakeCollection[user.Teacher]{},
		parents:  &fakeCollection[user.Parent]{},
		parentStudents: &fakeCollection[user.ParentStudent]{
			filterBy: func(ps user.ParentStudent, filter core.Filter) bool {
				id, ok := filter["parent"]
				return !ok || id == itoa(ps.Parent.ID)
			},
		},
		grades: &fakeCollection[academics.Grade]{
			filterBy: func(g academics.Grade, filter core.Filter) bool { return studentParam(filter, g.Student) },
		},
		attendance: &fakeCollection[academics.Attendance]{},
		subjects:   &fakeCollection[academics.Subject]{},
		examTypes:  &fakeCollection[academics.ExamType]{},
		levels:     &fakeCollection[academics.Level]{},
		classes:    &fakeCollection[academics.Class]{},
		bulletins: &fakeCollection[documents.Bulletin]{
			filterBy: func(b documents.Bulletin, filter core.Filter) bool { return studentParam(filter, b.Student) },
		},
		invoices: &fakeCollection[finance.Invoice]{
			filterBy: func(inv finance.Invoice, filter core.Filter) bool { return studentParam(filter, inv.Student) },
		},
		payments: &fakeCollection[finance.Payment]{},
	}
}

func (f *fakeAPI) api() API {
	return API{
		Profile:        f.profile,
		Students:       f.students,
		Teachers:       f.teachers,
		Parents:        f.parents,
		ParentStudents: f.parentStudents,
		Grades:         f.grades,
		Attendance:     f.attendance,
		Subjects:       f.subjects,
		ExamTypes:      f.examTypes,
		Levels:         f.levels,
		Classes:        f.classes,
		Bulletins:      f.bulletins,
		Invoices:       f.invoices,
		Payments:       f.payments,
	}
}

// totalLists counts every List call made to the fake backend.
func (f *fakeAPI) totalLists() int {
	return len(f.students.listCalls()) + len(f.teachers.listCalls()) + len(f.parents.listCalls()) +
		len(f.parentStudents.listCalls()) + len(f.grades.listCalls()) + len(f.attendance.listCalls()) +
		len(f.subjects.listCalls()) + len(f.examTypes.listCalls()) + len(f.levels.listCalls()) +
		len(f.classes.listCalls()) + len(f.bulletins.listCalls()) + len(f.invoices.listCalls()) +
		len(f.payments.listCalls())
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func newDeps(api *fakeAPI) Deps {
	validate, translator := core.NewValidator()
	academics.InitValidators(validate, translator)
	return Deps{
		API:        api.api(),
		Logger:     nopLogger{},
		Validate:   validate,
		Translator: translator,
		Now:        func() time.Time { return testNow },
	}
}

type memStorage map[string]string

func (m memStorage) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memStorage) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memStorage) Remove(key string) error {
	delete(m, key)
	return nil
}

func signedIn(usr user.User) *session.Store {
	store := session.NewStore(memStorage{})
	_ = store.Save(user.Tokens{Access: "access", Refresh: "refresh"}, usr)
	return store
}

func account(id int, email string) user.Account {
	return user.Account{ID: id, FirstName: "First", LastName: "Last", Email: email}
}
