// Package dashboard loads the data of the five role dashboards.
//
// Every dashboard follows the same state machine: Open checks the session (Unauthenticated),
// resolves the signed-in user's profile (Loading), then fetches its collections concurrently (Ready).
// A profile that cannot be resolved ends in the Error state.
package dashboard

import (
	"context"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrClosed           = errors.New("dashboard closed")
	ErrNotReady         = errors.New("dashboard not ready")
	ErrChildNotFound    = errors.New("child not found")
)

type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unauthenticated"
	}
}

type (
	// Collection is a backend collection the dashboards read and write.
	Collection[T any] interface {
		List(ctx context.Context, filter core.Filter) ([]T, error)
		Create(ctx context.Context, body interface{}) (T, error)
	}

	// ProfileSource returns the account the backend authenticated.
	ProfileSource interface {
		Profile(ctx context.Context) (user.User, error)
	}

	// SessionLoader is implemented by *session.Store.
	SessionLoader interface {
		Load() (session.Session, bool)
	}
)

// API is the part of the backend used by the dashboards, bound to one visitor's tokens.
type API struct {
	Profile        ProfileSource
	Students       Collection[user.Student]
	Teachers       Collection[user.Teacher]
	Parents        Collection[user.Parent]
	ParentStudents Collection[user.ParentStudent]
	Grades         Collection[academics.Grade]
	Attendance     Collection[academics.Attendance]
	Subjects       Collection[academics.Subject]
	ExamTypes      Collection[academics.ExamType]
	Levels         Collection[academics.Level]
	Classes        Collection[academics.Class]
	Bulletins      Collection[documents.Bulletin]
	Invoices       Collection[finance.Invoice]
	Payments       Collection[finance.Payment]
}

// Deps are the dependencies shared by all dashboards.
type Deps struct {
	API        API
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Now        func() time.Time // defaults to time.Now
}

// newestOrdering sorts by creation date, newest first.
var newestOrdering = core.Ordering{Field: "created_at"}

// base holds the state machine shared by the dashboards.
// Every field below mu is guarded by it.
type base struct {
	Deps

	mu     sync.Mutex
	wg     sync.WaitGroup
	state  State
	err    error
	gen    uint64
	sess   session.Session
	loads  uint64
	latest map[string]uint64 // last load started, per collection
}

func newBase(deps Deps) base {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return base{Deps: deps}
}

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the error that put the dashboard in the Error or Unauthenticated state.
func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// User returns the signed-in user.
func (b *base) User() user.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess.User
}

// Wait blocks until every fetch started so far has completed.
func (b *base) Wait() {
	b.wg.Wait()
}

// Close drops every response still in flight.
func (b *base) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
}

// begin starts a new load generation once a session is confirmed.
func (b *base) begin(store SessionLoader) (session.Session, uint64, error) {
	var sess session.Session
	var ok bool
	if store != nil {
		sess, ok = store.Load()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if !ok {
		b.state = StateUnauthenticated
		b.err = ErrNotAuthenticated
		return session.Session{}, b.gen, ErrNotAuthenticated
	}
	b.state = StateLoading
	b.err = nil
	b.sess = sess
	return sess, b.gen, nil
}

// currentLocked reports whether results of generation `gen` may still be applied.
func (b *base) currentLocked(ctx context.Context, gen uint64) bool {
	return gen == b.gen && ctx.Err() == nil
}

// fail moves to the Error state, unless the load was superseded.
func (b *base) fail(ctx context.Context, gen uint64, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.currentLocked(ctx, gen) {
		return ErrClosed
	}
	b.state = StateError
	b.err = err
	return err
}

// ready runs `apply` and moves to the Ready state, unless the load was superseded.
func (b *base) ready(ctx context.Context, gen uint64, apply func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.currentLocked(ctx, gen) {
		return ErrClosed
	}
	apply()
	b.state = StateReady
	return nil
}

// readyGen returns the current generation if the dashboard is Ready.
func (b *base) readyGen() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateReady {
		return 0, ErrNotReady
	}
	return b.gen, nil
}

// loader fetches data and returns the closure storing it.
type loader func(ctx context.Context) (apply func(), err error)

// spawn runs `load` in the background; its result is applied (under lock) only if `gen` is still current
// and no later load of the same collection was started.
// Failures are logged and leave the data as it was.
func (b *base) spawn(ctx context.Context, gen uint64, what string, load loader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spawnLocked(ctx, gen, what, load)
}

func (b *base) spawnLocked(ctx context.Context, gen uint64, what string, load loader) {
	if b.latest == nil {
		b.latest = make(map[string]uint64)
	}
	b.loads++
	seq := b.loads
	b.latest[what] = seq

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		apply, err := load(ctx)

		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.currentLocked(ctx, gen) || b.latest[what] != seq {
			return
		}
		if err != nil {
			b.logError("loading "+what, err)
			return
		}
		apply()
	}()
}

func (b *base) logError(msg string, err error) {
	if b.Logger != nil {
		b.Logger.Error(msg, err, b.sess.User)
	}
}

// validate runs the form validations.
func (b *base) validate(form interface {
	Validate(*validator.Validate, ut.Translator) error
}) error {
	return form.Validate(b.Validate, b.Translator)
}

// listInto fetches a collection into `dst`.
func listInto[T any](c Collection[T], filter core.Filter, dst *[]T) loader {
	return func(ctx context.Context) (func(), error) {
		items, err := c.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return func() { *dst = items }, nil
	}
}

// matchProfile resolves the profile of `email` in a whole profile collection.
func matchProfile[P user.Profile](ctx context.Context, c Collection[P], email string) (P, error) {
	var zero P
	profiles, err := c.List(ctx, nil)
	if err != nil {
		return zero, errors.Wrap(err, "listing profiles")
	}
	profile, ok := user.FindByEmail(profiles, email)
	if !ok {
		return zero, ErrProfileNotFound
	}
	return profile, nil
}

// matchAccount checks that the backend authenticates the session's user.
func matchAccount(ctx context.Context, src ProfileSource, email string) (user.User, error) {
	usr, err := src.Profile(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting profile")
	}
	if !usr.SameEmail(email) {
		return user.User{}, ErrProfileNotFound
	}
	return usr, nil
}

func newestFilter() core.Filter {
	return core.Filter{}.WithOrdering(newestOrdering)
}

func idFilter(key string, id int) core.Filter {
	return core.Filter{key: itoa(id)}
}

func copyOf[T any](items []T) []T {
	return append([]T(nil), items...)
}
