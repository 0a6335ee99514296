package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the HTTP server until a shutdown signal arrives.
func (s *Server) Start() error {
	if s.Templates != nil {
		if err := s.Templates.Start(); err != nil {
			s.Logger.LogError(err, "Template hot reload unavailable, using loaded template")
		}
	}

	httpServer := s.setupHTTPServer()

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// setupHTTPServer creates and configures the HTTP server.
func (s *Server) setupHTTPServer() *http.Server {
	mux := s.setupRoutes()
	handler := s.Obs.HTTPMiddleware()(mux)
	addr := fmt.Sprintf("%s:%s", s.AppConfig.Server.Host, s.AppConfig.Server.Port)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.AppConfig.Server.ReadTimeout,
		WriteTimeout: s.AppConfig.Server.WriteTimeout,
		IdleTimeout:  s.AppConfig.Server.IdleTimeout,
	}
}

// displayServerInfo logs the effective server configuration at startup.
func (s *Server) displayServerInfo() {
	s.Logger.Info("Server configuration",
		"address", fmt.Sprintf("%s:%s", s.AppConfig.Server.Host, s.AppConfig.Server.Port),
		"provider", s.Parser.ProviderName(),
		"tls_enabled", s.AppConfig.Server.TLS.Enabled,
		"auth_enabled", len(s.APIKeys) > 0,
		"rate_limit_enabled", s.RateLimiter != nil,
		"quota_enabled", s.Quota != nil && s.AppConfig.Quota.Enabled,
		"max_file_size", s.MaxRequestSize)
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown.
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", s.AppConfig.Server.TLS.Enabled)

		var err error
		if s.AppConfig.Server.TLS.Enabled {
			err = server.ListenAndServeTLS(s.AppConfig.Server.TLS.CertFile, s.AppConfig.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())

		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown drains in-flight requests and releases resources.
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.Templates != nil {
		s.Templates.Stop()
	}

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	if s.Quota != nil {
		if err := s.Quota.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close quota store connection")
		}
	}

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}
