package server

import (
	"fmt"
	"net/http"
	"strconv"
)

// setupRoutes configures all HTTP routes and middleware.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	quotaGate := s.quotaMiddleware()
	sizeLimit := s.requestSizeLimitMiddleware()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/api/parse",
		rateLimit(
			s.authMiddleware(quotaGate(sizeLimit(s.parseHandler))),
		),
	)
	mux.HandleFunc("/api/quota", s.authMiddleware(s.quotaGetHandler))
	mux.HandleFunc("/api/quota/reset", s.authMiddleware(s.quotaResetHandler))
	mux.HandleFunc("/api/quota/stats", s.authMiddleware(s.quotaStatsHandler))

	return mux
}

// authMiddleware provides API key authentication. A deployment without
// configured keys is open.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := clientAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// quotaMiddleware enforces the daily per-identity quota. The identity is the
// caller's API key when present, its IP otherwise. Quota decisions are
// advertised through X-RateLimit-* headers; the quota store failing never
// blocks a request.
func (s *Server) quotaMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.Quota == nil || !s.AppConfig.Quota.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity := s.quotaIdentity(r)
			max := s.AppConfig.Quota.DailyMax

			decision := s.Quota.CheckAndIncrement(r.Context(), identity, max)
			s.Obs.GetMetrics().RecordQuotaDecision(r.Context(), decision.Allowed)

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(max, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetTime.Unix(), 10))

			if !decision.Allowed {
				s.Logger.Info("Daily quota exceeded",
					"identity", identity,
					"limit", max)
				writeErrorResponse(w, "Daily quota exceeded",
					fmt.Sprintf("Daily limit of %d requests reached, resets at %s", max, decision.ResetTime.Format("15:04 MST")),
					http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// quotaIdentity resolves the identity a request is counted against.
func (s *Server) quotaIdentity(r *http.Request) string {
	if apiKey := clientAPIKey(r); apiKey != "" {
		return apiKey
	}
	return getClientIP(r)
}

// requestSizeLimitMiddleware caps the size of incoming request bodies.
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters).
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
