package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/omnibot-dev/omnibot/bot"
)

const shutdownTimeout = 10 * time.Second

// server is the webhook transport shim: it reads raw bytes, hands them to
// the dispatch engine and writes back whatever it returns.
type server struct {
	log    *slog.Logger
	engine *bot.Engine
	http   *http.Server
}

func newServer(log *slog.Logger, engine *bot.Engine, addr string) *server {

	srv := &server{
		log:    log,
		engine: engine,
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// webhooks are POST-only; anything else is a caller bug, not 405
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "webhook expects POST", http.StatusBadRequest)
	})

	router.Post("/bot", srv.webhook)
	router.Post("/bot/{platform}", srv.webhook)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv.http = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return srv
}

func (srv *server) webhook(w http.ResponseWriter, r *http.Request) {

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}

	// route-pinned platform beats detection
	tag := bot.Type(chi.URLParam(r, "platform"))

	out, err := srv.engine.RunAs(r.Context(), tag, raw, r.Header)
	if err != nil {
		switch {
		case errors.Is(err, bot.ErrBadPayload):
			http.Error(w, "malformed request payload", http.StatusBadRequest)
		case errors.Is(err, bot.ErrNoRoute):
			http.Error(w, "notFound", http.StatusNotFound)
		default:
			srv.log.Error("webhook", slog.Any("error", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	switch body := out.(type) {
	case string:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(body)
	}
}

// serve runs the listener until ctx is canceled, then drains connections,
// flushes detached store writes and closes the engine.
func (srv *server) serve(ctx context.Context) error {

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		srv.log.Info("server: listening",
			slog.String("addr", srv.http.Addr),
		)
		err := srv.http.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-ctx.Done()
		srv.log.Info("server: draining")

		stop, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.http.Shutdown(stop); err != nil {
			return err
		}
		return srv.engine.Close()
	})

	return group.Wait()
}
