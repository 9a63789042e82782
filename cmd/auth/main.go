package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcleanup "github.com/AlibekovAA/jwt-auth-api/internal/auth/cleanup"
	authhttp "github.com/AlibekovAA/jwt-auth-api/internal/auth/http"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/bootstrap"
	commonhttp "github.com/AlibekovAA/jwt-auth-api/internal/common/http"
	srv "github.com/AlibekovAA/jwt-auth-api/internal/common/server"
	userhttp "github.com/AlibekovAA/jwt-auth-api/internal/user/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewAuthApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start auth service: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	log := app.Log
	cfg := app.Config

	go authcleanup.StartRefreshTokenCleanup(ctx, app.RefreshTokenRepo, app.Clock, cfg.CleanupInterval, log)

	rateLimiter := commonhttp.NewStrictRateLimiter(cfg.TrustProxyHeaders)
	defer rateLimiter.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/", commonhttp.NotFoundHandler)
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, app.Pool))
	mux.Handle("/metrics", promhttp.Handler())

	authhttp.NewHandler(authhttp.HandlerDeps{
		Users:          app.UserService,
		Tokens:         app.TokenService,
		Limiter:        rateLimiter,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
	}).Register(mux)

	userhttp.NewHandler(userhttp.HandlerDeps{
		Users:          app.UserService,
		Verifier:       app.TokenService,
		Limiter:        rateLimiter,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
	}).Register(mux)

	server := srv.NewServer(srv.DefaultServerConfig(cfg.HTTPPort), commonhttp.BuildBaseHandler("auth", log, mux))

	shutdownHooks := []srv.ShutdownHook{
		func(context.Context) error {
			log.Info("auth service: stopping background workers")
			cancel()
			return nil
		},
	}

	srv.StartWithGracefulShutdownAndHooks(ctx, server, log, "auth", shutdownHooks)
}
