package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"videopins-go/internal/api"
	"videopins-go/internal/config"
	"videopins-go/internal/logger"
	"videopins-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithField("service", "videopins-api")
	cfg := config.Load()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(st),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
