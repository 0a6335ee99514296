package server

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/rajibrjb/AiResumeParserApi/internal/types"
)

const healthCheckTimeout = 10 * time.Second

// healthHandler reports service and provider status. A live connectivity
// round trip to the provider runs only when the caller asks for it with
// ?live=true, so health probes stay cheap.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := types.HealthStatus{
		Status:     "healthy",
		Provider:   s.Parser.ProviderName(),
		Configured: s.Parser.ProviderConfigured(),
		Version:    s.Version,
	}

	if !status.Configured {
		status.Status = "degraded"
	}

	if r.URL.Query().Get("live") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		connected := s.Parser.ProviderConnected(ctx)
		status.Connected = &connected
		if !connected {
			status.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Printf("Failed to encode health response: %v", err)
	}
}

// statsHandler reports server statistics including rate limiting info.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": s.AppConfig.Observability.ServiceName,
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	rl := s.AppConfig.Server.RateLimit
	response["rate_limit_config"] = map[string]any{
		"enabled":          rl.Enabled,
		"requests_per_min": rl.RequestsPerMin,
		"burst_capacity":   rl.BurstCapacity,
		"by_ip":            rl.ByIP,
		"by_api_key":       rl.ByAPIKey,
	}

	response["quota"] = map[string]any{
		"enabled":   s.AppConfig.Quota.Enabled,
		"daily_max": s.AppConfig.Quota.DailyMax,
	}

	writeJSONResponse(w, response)
}

// quotaGetHandler reports today's usage for one identity (?identity=...).
func (s *Server) quotaGetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Quota == nil {
		writeErrorResponse(w, "Quota disabled", "Daily quota tracking is not enabled", http.StatusNotFound)
		return
	}

	identity := r.URL.Query().Get("identity")
	if identity == "" {
		identity = s.quotaIdentity(r)
	}

	used := s.Quota.GetCurrentCount(r.Context(), identity)
	max := s.AppConfig.Quota.DailyMax
	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}

	writeJSONResponse(w, types.QuotaStatus{
		Identity:  identity,
		Used:      used,
		Limit:     max,
		Remaining: remaining,
	})
}

// quotaResetHandler clears today's counter for one identity.
func (s *Server) quotaResetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Quota == nil {
		writeErrorResponse(w, "Quota disabled", "Daily quota tracking is not enabled", http.StatusNotFound)
		return
	}

	var req QuotaResetRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Identity == "" {
		writeErrorResponse(w, "Missing identity", "identity field is required", http.StatusBadRequest)
		return
	}

	s.Quota.ResetLimit(r.Context(), req.Identity)
	s.Logger.Info("Quota reset", "identity", req.Identity)

	writeJSONResponse(w, map[string]any{
		"identity": req.Identity,
		"reset":    true,
	})
}

// quotaStatsHandler reports today's aggregate usage across identities.
func (s *Server) quotaStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Quota == nil {
		writeErrorResponse(w, "Quota disabled", "Daily quota tracking is not enabled", http.StatusNotFound)
		return
	}

	writeJSONResponse(w, s.Quota.GetStats(r.Context()))
}

// parseJSONRequest parses a JSON request body into the provided struct.
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if goerrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeJSONResponse writes v as the JSON response body.
func writeJSONResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response.
func writeErrorResponse(w http.ResponseWriter, errorText, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   errorText,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
