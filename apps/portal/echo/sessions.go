package echoportal

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
)

const contextStoreKey = "sessionStore"

// getStore returns the session store bound to the request (a store over no storage if none is).
func getStore(ctx echo.Context) *session.Store {
	if store, ok := ctx.Get(contextStoreKey).(*session.Store); ok {
		return store
	}
	return session.NewStore(nil)
}

// keys returns the cookie hash & block keys; a missing hash key is generated (sessions will not survive restarts).
func keys(conf core.SessionConfig) (hashKey, blockKey []byte) {
	hashKey = []byte(conf.HashKey)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
	}
	if conf.BlockKey != "" {
		blockKey = []byte(conf.BlockKey)
	}
	return hashKey, blockKey
}

func cookieOptions(conf core.SessionConfig) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   conf.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// cookieSessions keeps the whole session in a signed (and encrypted, given a block key) cookie.
func cookieSessions(conf core.SessionConfig, logger core.Logger) (echo.MiddlewareFunc, error) {
	hashKey, blockKey := keys(conf)
	if n := len(blockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, errors.New("session block key must be 16, 24 or 32 bytes long")
	}
	cs := sessions.NewCookieStore(hashKey, blockKey)
	cs.Options = cookieOptions(conf)
	cs.MaxAge(cs.Options.MaxAge)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			// an undecodable cookie yields a new, empty session
			sess, _ := cs.Get(ctx.Request(), conf.CookieName)
			storage := &cookieStorage{sess: sess, maxAge: cs.Options.MaxAge}

			req := ctx.Request()
			resp := ctx.Response()
			resp.Before(func() {
				if !storage.dirty {
					return
				}
				if err := sess.Save(req, resp); err != nil && logger != nil {
					logger.Error("saving session cookie", errors.Wrap(err, conf.CookieName))
				}
			})

			ctx.Set(contextStoreKey, session.NewStore(storage))
			return next(ctx)
		}
	}, nil
}

// cookieStorage is a session.Storage over a gorilla session, written back when the response starts.
type cookieStorage struct {
	sess   *sessions.Session
	maxAge int // configured cookie lifetime, restored when an emptied session is written again
	dirty  bool
}

func (s *cookieStorage) Get(key string) (string, bool) {
	val, ok := s.sess.Values[key].(string)
	return val, ok
}

func (s *cookieStorage) Set(key, value string) error {
	s.sess.Values[key] = value
	s.sess.Options.MaxAge = s.maxAge
	s.dirty = true
	return nil
}

func (s *cookieStorage) Remove(key string) error {
	if _, ok := s.sess.Values[key]; !ok {
		return nil
	}
	delete(s.sess.Values, key)
	if len(s.sess.Values) == 0 {
		s.sess.Options.MaxAge = -1 // drop the cookie
	}
	s.dirty = true
	return nil
}

// visitorSessions keeps the session server-side, keyed by a visitor id held in a signed cookie.
func visitorSessions(conf core.SessionConfig, backend session.Backend) (echo.MiddlewareFunc, error) {
	hashKey, blockKey := keys(conf)
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(conf.MaxAge.Seconds()))
	opts := cookieOptions(conf)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var visitorID string
			if cookie, err := ctx.Cookie(conf.CookieName); err == nil {
				_ = sc.Decode(conf.CookieName, cookie.Value, &visitorID)
			}
			if _, err := uuid.Parse(visitorID); err != nil {
				visitorID = uuid.NewString()
				encoded, err := sc.Encode(conf.CookieName, visitorID)
				if err != nil {
					return errors.Wrap(err, "encoding visitor cookie")
				}
				ctx.SetCookie(sessions.NewCookie(conf.CookieName, encoded, opts))
			}

			storage := backend.For(ctx.Request().Context(), visitorID)
			ctx.Set(contextStoreKey, session.NewStore(storage))
			return next(ctx)
		}
	}, nil
}
