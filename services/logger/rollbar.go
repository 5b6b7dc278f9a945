package logsvc

import (
	"io"
	"log"
	"strconv"
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

// RollbarLogger prints to a std logger and reports to rollbar once enabled.
type RollbarLogger struct {
	std     *log.Logger
	enabled *atomic.Bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(false)
	return &RollbarLogger{std: std, enabled: new(atomic.Bool)}
}

// NewDiscardLogger returns a logger printing nowhere and never reporting. Used in tests.
func NewDiscardLogger() *RollbarLogger {
	return &RollbarLogger{std: log.New(io.Discard, "", 0), enabled: new(atomic.Bool)}
}

// Enable turns rollbar reporting on or off (reports need a token).
func (l RollbarLogger) Enable(enabled bool) {
	l.enabled.Store(enabled)
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set signed-in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet && usr.ID != 0 { // only set one User
				rollbar.SetPerson(strconv.Itoa(usr.ID), usr.FullName(), usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			l.std.Printf("user: %d <%s> (%s)\n", usr.ID, usr.Email, usr.Role)
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	if l.enabled.Load() {
		send(l.prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.Error, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
