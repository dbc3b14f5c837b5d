package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/webforms/sheetsink/config"
	"github.com/webforms/sheetsink/creds"
	"github.com/webforms/sheetsink/log"
	"github.com/webforms/sheetsink/notify"
	"github.com/webforms/sheetsink/ratelimit"
	"github.com/webforms/sheetsink/routes"
	"github.com/webforms/sheetsink/sink"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	resolver := creds.NewResolver(cfg.CredentialsB64, cfg.CredentialsJSON)
	sheetSink := sink.NewSheets(resolver)

	notifier := notify.New(cfg.SlackWebhookURL)
	if !notifier.Enabled() {
		log.Warn("SLACK_WEBHOOK_URL not set, failure notifications disabled")
	}

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go limiter.Janitor(ctx)

	handler := routes.Wire(cfg, sheetSink, limiter, notifier)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Addr)
	return srv.ListenAndServe()
}
