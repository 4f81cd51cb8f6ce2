// Package bootstrap provides dependency initialization for pfp-animate.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maauso/pfp-animate/internal/config"
	"github.com/maauso/pfp-animate/internal/job"
	"github.com/maauso/pfp-animate/internal/media"
	"github.com/maauso/pfp-animate/internal/preset"
	"github.com/maauso/pfp-animate/internal/replicate"
	"github.com/maauso/pfp-animate/internal/sequencer"
	"github.com/maauso/pfp-animate/internal/storage"
)

// Dependencies holds all initialized dependencies shared by the server and the CLI.
type Dependencies struct {
	Service *job.Service
	Client  *replicate.Client
	Storage storage.Storage
	Catalog *preset.Catalog
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	catalog, err := preset.Load(cfg.PresetsFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	if cfg.PresetsFile != "" {
		logger.Info("presets loaded",
			slog.String("file", cfg.PresetsFile),
			slog.Int("animations", len(catalog.Animations)),
			slog.Int("motions", len(catalog.Motions)),
		)
	}

	// Initialize Replicate client
	client, err := NewReplicateClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	// ffmpeg encodes MP4 and probes audio; the assembler falls back to GIF without it
	ffmpeg := media.NewFFmpegEncoder(cfg.FFmpegPath, cfg.FFprobePath)
	assembler := media.NewAssembler(ffmpeg, logger)

	// Initialize job repository
	repo := job.NewMemoryRepository()

	svc := job.NewService(
		repo,
		client,
		assembler,
		logger,
		job.WithStorage(store),
		job.WithProber(ffmpeg),
		job.WithCatalog(catalog),
		job.WithOutputDir(cfg.OutputDir),
		job.WithSequencerConfig(sequencer.Config{
			FrameAttempts:   cfg.FrameAttempts,
			RetryDelay:      cfg.FrameRetryDelay,
			InterFrameDelay: cfg.FrameInterDelay,
		}),
	)

	return &Dependencies{
		Service: svc,
		Client:  client,
		Storage: store,
		Catalog: catalog,
	}, nil
}

// NewReplicateClient builds the transport, the rate-limit retrying caller
// and the API client from configuration.
func NewReplicateClient(cfg *config.Config, logger *slog.Logger) (*replicate.Client, error) {
	transport, err := replicate.NewHTTPTransport(cfg.ReplicateAPIToken,
		replicate.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		replicate.WithAuthScheme(cfg.ReplicateAuthScheme),
	)
	if err != nil {
		return nil, fmt.Errorf("create Replicate transport: %w", err)
	}

	caller := replicate.NewCaller(transport,
		replicate.WithRetryPolicy(replicate.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseBackoff: cfg.RetryBaseBackoff,
		}),
		replicate.WithLogger(logger),
	)

	client := replicate.NewClient(caller,
		replicate.WithBaseURL(cfg.ReplicateBaseURL),
		replicate.WithRequestTimeout(cfg.HTTPTimeout),
	)
	return client, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Prefix:          cfg.S3Prefix,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
