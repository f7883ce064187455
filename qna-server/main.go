package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"qna/internal/api"
	"qna/internal/docstore"
	"qna/internal/logger"
)

const serverVersion = "0.1.0-dev"

func main() {
	var (
		port        = flag.String("port", "8080", "HTTP listen port")
		dbPath      = flag.String("db", "./qna.db", "path to SQLite database")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		adminKeyOut = flag.String("admin-key-out", "", "write bootstrap admin API key to this file if no admin exists")
	)
	flag.Parse()

	log := logger.New(logger.Config{
		Level:  *logLevel,
		Pretty: isatty.IsTerminal(os.Stderr.Fd()),
		Output: os.Stderr,
	})

	database, err := docstore.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	if err := docstore.ApplyMigrations(database); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	store := docstore.New(database)
	if *adminKeyOut != "" {
		adminName, err := store.EnsureBootstrapAdmin(*adminKeyOut)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
		if adminName != "" {
			log.Info().Str("user", adminName).Str("key_file", *adminKeyOut).Msg("bootstrap admin created")
		}
	}

	mux := api.NewRouter(database, serverVersion, log)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("qna-server listening")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	<-shutdownDone
}
