package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/app"
	"github.com/tatianab/gtfoklahoma/internal/config"
	"github.com/tatianab/gtfoklahoma/internal/logging"
	"github.com/tatianab/gtfoklahoma/internal/remote"
)

func main() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides GTFO_LISTEN_ADDR)")
	resume := fs.String("session", "", "saved session id to resume")
	name := fs.String("name", "Oklahoma or bust", "name for a new session")

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger, closer, err := logging.Open(cfg.LogLevel, "")
	if err != nil {
		fmt.Printf("Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, *resume, *name, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, resume, name string, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	session, err := rt.Session(resume, name)
	if err != nil {
		return err
	}
	eng, _, err := rt.Launch(session)
	if err != nil {
		return err
	}
	hub := remote.NewHub(session, logger)
	eng.RegisterObserver(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		idx := rt.Index()
		if idx == nil {
			http.Error(w, "journal index disabled", http.StatusNotFound)
			return
		}
		sums, err := idx.Sessions(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sums)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe()
	}()
	logger.Info("listening", "addr", cfg.ListenAddr, "session", session.ID)

	if err := eng.Start(ctx); err != nil {
		return err
	}

	select {
	case <-eng.Done():
		logger.Info("journey over", "session", session.ID)
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		logger.Error("http server failed", "err", err)
	}

	// Cancelling aborts a decision nobody is answering.
	stop()
	<-eng.Done()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http shutdown", "err", err)
	}

	if err := rt.Store.Save(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	logger.Info("session saved", "session", session.ID, "over", session.Over)
	if err := eng.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
