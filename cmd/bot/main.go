package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediagrab/internal/config"
	"mediagrab/internal/delivery"
	"mediagrab/internal/dispatch"
	"mediagrab/internal/extractor"
	"mediagrab/internal/fetcher"
	"mediagrab/internal/instagram"
	"mediagrab/internal/pipeline"
	"mediagrab/internal/staticserver"
	"mediagrab/internal/telegram"
	"mediagrab/internal/tokenstore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.RequireToken(); err != nil {
		logger.Error("configuration incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bot stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tokens := tokenstore.New(cfg.TokenTTL)
	engine := extractor.New(cfg.YtdlpPath, cfg.ExtractTimeout, logger)
	images := fetcher.New(cfg.Timeout, logger)
	posts := instagram.New(cfg.Timeout, cfg.InstagramCookie, logger)

	pipe := pipeline.New(engine, images, posts, pipeline.Options{
		CookieText: cfg.CookieText,
		CookiePath: cfg.CookiePath,
		Logger:     logger,
	})

	uploaders, err := buildUploaders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DownloadsDir, 0o750); err != nil {
		return err
	}

	pool := dispatch.New(cfg.Workers, logger)
	bot, err := telegram.New(cfg.BotToken, tokens, pipe, pool, logger)
	if err != nil {
		return err
	}
	bot.SetDeliverer(delivery.NewRouter(bot, uploaders, delivery.Config{
		InlineLimit:  cfg.InlineLimit,
		ProtocolMax:  cfg.ProtocolMax,
		DownloadsDir: cfg.DownloadsDir,
		PublicBase:   cfg.PublicBase,
	}, logger))

	if cfg.PublicBase != "" {
		srv := staticserver.New(cfg.Listen, cfg.DownloadsDir, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("static server stopped", slog.Any("error", err))
			}
		}()
	}
	if cfg.TokenTTL > 0 {
		go sweepTokens(ctx, tokens, cfg.TokenTTL, logger)
	}

	return bot.Run(ctx)
}

func buildUploaders(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]delivery.Uploader, error) {
	var uploaders []delivery.Uploader
	if cfg.S3Endpoint != "" {
		s3, err := delivery.NewS3Uploader(delivery.S3Config{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			UseSSL:        cfg.S3UseSSL,
			UploadTimeout: cfg.S3UploadTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		uploaders = append(uploaders, s3)
		logger.Info("object-store uploads enabled", slog.String("endpoint", cfg.S3Endpoint))
	}
	if cfg.UploadEndpoint != "" {
		uploaders = append(uploaders, delivery.NewAnonUploader(cfg.UploadEndpoint, 5*time.Minute))
		logger.Info("anonymous uploads enabled", slog.String("endpoint", cfg.UploadEndpoint))
	}
	return uploaders, nil
}

func sweepTokens(ctx context.Context, tokens *tokenstore.Store, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := tokens.Sweep(); removed > 0 {
				logger.Info("swept expired tokens", slog.Int("removed", removed))
			}
		}
	}
}
