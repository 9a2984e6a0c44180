package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seoblogy/seo-audit/audit"
	"github.com/seoblogy/seo-audit/config"
	"github.com/seoblogy/seo-audit/logging"
	"github.com/seoblogy/seo-audit/metrics"
	"github.com/seoblogy/seo-audit/semantic"
	"github.com/seoblogy/seo-audit/server"
	"github.com/seoblogy/seo-audit/stats"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagConfig  string
	flagPort    string
	flagDataDir string
)

func main() {
	root := &cobra.Command{
		Use:          "seo-audit",
		Short:        "HTTP service that audits web pages for on-page SEO signals",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.Flags().StringVarP(&flagConfig, "config", "c", "", "path to the configuration file")
	root.Flags().StringVarP(&flagPort, "port", "p", "", "port to listen on (overrides config)")
	root.Flags().StringVar(&flagDataDir, "data-dir", "", "directory for persisted statistics (overrides config)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEnv() {
	// .env.development wins for local development, then plain .env.
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}
}

func setupGinMode() {
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
}

func runServe(cmd *cobra.Command, args []string) error {
	loadEnv()
	setupGinMode()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort != "" {
		cfg.Server.Port = flagPort
	}
	if flagDataDir != "" {
		cfg.Server.DataDir = flagDataDir
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting", "version", version, "port", cfg.Server.Port)

	sem := semantic.Init(semanticOptions(cfg))
	auditor := audit.New(cfg, sem, logger)

	storage, err := stats.NewStorage(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	defer storage.Close()
	storage.Cleanup()

	srv := server.New(cfg, auditor, storage, metrics.New(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}

func semanticOptions(cfg *config.Config) semantic.Options {
	opts := semantic.Options{
		SimilarityThreshold: cfg.Semantic.SimilarityThreshold,
		MaxChars:            cfg.Semantic.MaxChars,
		TopPhrases:          cfg.Semantic.TopPhrases,
		EntitiesPerCategory: cfg.Semantic.EntitiesPerCategory,
		TagWeights:          cfg.Semantic.TagWeights,
		Stopwords:           cfg.Audit.Stopwords,
	}
	if cfg.Semantic.Provider == "ollama" {
		opts.Vectorizer = semantic.NewOllamaVectorizer(cfg.Semantic.OllamaURL, cfg.Semantic.OllamaModel)
	}
	return opts
}
