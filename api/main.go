package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/DeafMist/news-analytics/backend/internal/analytics"
	"github.com/DeafMist/news-analytics/backend/internal/auth"
	"github.com/DeafMist/news-analytics/backend/internal/config"
	"github.com/DeafMist/news-analytics/backend/internal/elasticsearch"
	"github.com/DeafMist/news-analytics/backend/internal/logger"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	var esOpts []elasticsearch.Option
	if cfg.ElasticsearchUsername != "" {
		esOpts = append(esOpts, elasticsearch.WithBasicAuth(cfg.ElasticsearchUsername, cfg.ElasticsearchPassword))
	}
	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, esOpts...)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := esClient.WaitReady(ctx, 10, 3*time.Second); err != nil {
		log.Error("elasticsearch unavailable", slog.Any("err", err))
		os.Exit(1)
	}

	startupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	profiles, err := profile.Open(startupCtx, profile.Settings{
		Backend:       cfg.Profile.Backend,
		DSN:           cfg.Profile.DSN,
		RedisAddr:     cfg.Profile.RedisAddr,
		RedisPassword: cfg.Profile.RedisPassword,
		RedisDB:       cfg.Profile.RedisDB,
	})
	cancel()
	if err != nil {
		log.Error("open keyword profiles", slog.String("backend", cfg.Profile.Backend), slog.Any("err", err))
		os.Exit(1)
	}
	if profiles != nil {
		defer profiles.Close()
	}

	tokenizer := processing.NewTokenizer()
	if cfg.StopwordsFile != "" {
		extra, err := processing.LoadStopwords(cfg.StopwordsFile)
		if err != nil {
			log.Error("load stopwords", slog.String("path", cfg.StopwordsFile), slog.Any("err", err))
			os.Exit(1)
		}
		tokenizer = processing.NewTokenizer(extra...)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var provider profile.Provider
	if profiles != nil {
		provider = profiles
	}
	engine := analytics.NewService(esClient, provider, analytics.Options{
		QueryTimeout:   cfg.QueryTimeout,
		ProfileTimeout: cfg.Profile.Timeout,
		Tokenizer:      tokenizer,
		Metrics:        analytics.NewMetrics(reg),
		Logger:         log,
	})

	srv := &server{
		log:      log,
		engine:   engine,
		health:   esClient,
		profiles: profiles,
		verifier: auth.NewVerifier(cfg.JWTSecret),
		gatherer: reg,
		timeout:  cfg.QueryTimeout,
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 5*time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("index", cfg.ElasticsearchIndex),
			slog.String("profile_backend", cfg.Profile.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
