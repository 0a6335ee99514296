package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rajibrjb/AiResumeParserApi/internal/ai"
	"github.com/rajibrjb/AiResumeParserApi/internal/config"
	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/observability"
	"github.com/rajibrjb/AiResumeParserApi/internal/parser"
	"github.com/rajibrjb/AiResumeParserApi/internal/quota"
	"github.com/rajibrjb/AiResumeParserApi/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resume parsing server",
	Long: `Start an HTTP server that provides REST API endpoints for resume parsing.

Available endpoints:
- POST /api/parse: Upload a resume document and receive structured JSON
- GET /health: Health check endpoint (add ?live=true for a provider round trip)
- GET /stats: Server statistics and rate limiting info
- GET /api/quota: Daily quota standing for one identity
- POST /api/quota/reset: Clear today's counter for one identity
- GET /api/quota/stats: Aggregate quota usage across identities`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")

	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("server.tls.certfile", "cert-file")
	bindFlag("server.tls.keyfile", "key-file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	aiService, err := ai.NewService(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	obs, err := observability.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	counter, err := buildQuotaCounter(cmd, cfg, logger)
	if err != nil {
		return err
	}

	templates, err := config.NewTemplateStore(cfg.App.DefaultTemplateFile, logger)
	if err != nil {
		return fmt.Errorf("failed to load default template: %w", err)
	}

	deps := server.Dependencies{
		Version:   Version,
		Parser:    parser.NewService(aiService.Provider, logger),
		Quota:     counter,
		Templates: templates,
		Obs:       obs,
	}
	return server.NewServer(cfg, deps, logger).Start()
}

// buildQuotaCounter connects the quota store when the daily quota is enabled.
// An unreachable store is logged, not fatal: admission fails open.
func buildQuotaCounter(cmd *cobra.Command, cfg *config.Config, logger *errors.Logger) (*quota.Counter, error) {
	if !cfg.Quota.Enabled {
		return nil, nil
	}

	client := quota.NewClient(cfg.Quota.Redis.Addr, cfg.Quota.Redis.Password, cfg.Quota.Redis.DB)
	counter := quota.NewCounter(client, logger, time.Local)

	if err := counter.Ping(cmd.Context()); err != nil {
		logger.LogError(err, "Quota store unreachable at startup, quota will fail open",
			"addr", cfg.Quota.Redis.Addr)
	} else {
		logger.Info("Connected to quota store",
			"addr", cfg.Quota.Redis.Addr,
			"daily_max", cfg.Quota.DailyMax)
	}

	return counter, nil
}
