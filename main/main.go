package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/synqronlabs/shrike"
	"github.com/synqronlabs/shrike/disposable"
	"github.com/synqronlabs/shrike/dns"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	classifier := disposable.NewClassifier(disposable.Config{
		File:    os.Getenv("SHRIKE_DISPOSABLE_FILE"),
		FeedURL: os.Getenv("SHRIKE_DISPOSABLE_FEED"),
		Logger:  logger,
	})

	var nameservers []string
	if ns := os.Getenv("SHRIKE_NAMESERVERS"); ns != "" {
		nameservers = strings.Split(ns, ",")
	}

	validator := shrike.NewValidator(shrike.Config{
		Resolver:   dns.NewResolver(dns.ResolverConfig{Nameservers: nameservers}),
		Classifier: classifier,
		Logger:     logger,
	})

	snapshot := os.Getenv("SHRIKE_CACHE_SNAPSHOT")
	if snapshot != "" {
		if f, err := os.Open(snapshot); err == nil {
			if err := validator.LoadCache(f); err != nil {
				logger.Warn("cache snapshot load failed", slog.Any("error", err))
			} else {
				logger.Info("cache snapshot loaded", slog.Int("entries", validator.CacheSize()))
			}
			f.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go classifier.Run(ctx)
	go validator.Run(ctx)

	addr := os.Getenv("SHRIKE_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	server := shrike.NewServer(validator, shrike.ServerConfig{
		Addr:   addr,
		Logger: logger,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
		}
	}()

	if err := server.ListenAndServe(); !errors.Is(err, shrike.ErrServerClosed) {
		log.Fatal(err)
	}

	if snapshot != "" {
		f, err := os.Create(snapshot)
		if err != nil {
			logger.Warn("cache snapshot save failed", slog.Any("error", err))
			return
		}
		if err := validator.SaveCache(f); err != nil {
			logger.Warn("cache snapshot save failed", slog.Any("error", err))
		}
		f.Close()
	}
}
