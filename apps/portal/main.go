package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	echoportal "github.com/trezcool/masomo-portal/apps/portal/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/services/backend"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
	"github.com/trezcool/masomo-portal/storage/kvstore/inmem"
	redisstore "github.com/trezcool/masomo-portal/storage/kvstore/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	backendLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "BACKEND : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	backendLogger.Enable(!conf.Debug)

	client := backend.New(
		conf.Backend.BaseURL,
		backend.WithTimeout(conf.Backend.Timeout),
		backend.WithLogger(backendLogger),
	)

	// set up session storage
	sessions, rdb, err := setUpSessions(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up sessions: %v", err), err)
	}
	if rdb != nil {
		defer func() {
			if err = rdb.Close(); err != nil {
				logger.Error("closing redis", err)
			}
		}()
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	academics.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("backend").Set(conf.Backend.BaseURL)
	expvar.NewString("sessions").Set(conf.Session.Store)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Portal Service

	server, err := echoportal.NewServer(
		echoportal.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Backend:    client,
			Sessions:   sessions,
			Validate:   validate,
			Translator: translator,
		},
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpSessions returns the configured server-side session backend; nil keeps sessions in a cookie.
func setUpSessions(conf *core.Config, logger core.Logger) (session.Backend, *redis.Client, error) {
	switch conf.Session.Store {
	case core.SessionStoreRedis:
		rdb, err := redisstore.NewClient(context.Background(), conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewBackend(rdb, conf.Redis.KeyPrefix, conf.Session.MaxAge, logger), rdb, nil
	case core.SessionStoreMemory:
		return inmem.NewBackend(), nil, nil
	case core.SessionStoreCookie, "":
		return nil, nil, nil
	default:
		return nil, nil, errors.Errorf("unknown session store %q", conf.Session.Store)
	}
}
