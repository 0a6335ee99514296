package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rajibrjb/AiResumeParserApi/internal/types"
)

// parseHandler accepts a multipart upload (file field "file", optional
// "template" form field holding a JSON object) and returns the structured
// resume data.
func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	tracer := s.Obs.Tracer("resumeparser.api")
	ctx, span := tracer.Start(ctx, "api.parse")
	defer span.End()

	if err := r.ParseMultipartForm(s.MaxRequestSize); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid multipart request", err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Missing file", "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Failed to read file", err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		writeErrorResponse(w, "Empty file", "uploaded file contains no data", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !s.mimeTypeAllowed(mimeType) {
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Unsupported file type",
			fmt.Sprintf("content type %q is not accepted", mimeType), http.StatusBadRequest)
		return
	}

	template, err := s.resolveTemplate(r.FormValue("template"))
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid template", err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("request.filename", header.Filename),
		attribute.String("request.mime_type", mimeType),
		attribute.Int("request.file_size", len(data)),
		attribute.Bool("request.has_template", template != nil),
	)

	input := types.ParseResumeInput{
		FileData: data,
		MimeType: mimeType,
		Filename: header.Filename,
		Template: template,
	}

	start := time.Now()
	result, err := s.Parser.Parse(ctx, input)
	s.Obs.GetMetrics().RecordParse(ctx, s.Parser.ProviderName(), err == nil, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "parse"))
		writeErrorResponse(w, "Failed to parse resume", err.Error(), statusForError(err))
		return
	}

	span.SetAttributes(attribute.Bool("success", true))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		span.RecordError(err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// resolveTemplate decodes the caller's template or falls back to the
// service-wide default. The template must be a JSON object.
func (s *Server) resolveTemplate(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		if s.Templates != nil {
			return s.Templates.Get(), nil
		}
		return types.DefaultResumeTemplate(), nil
	}

	var template map[string]any
	if err := json.Unmarshal([]byte(raw), &template); err != nil {
		return nil, fmt.Errorf("template field must be a JSON object: %w", err)
	}
	if len(template) == 0 {
		return nil, fmt.Errorf("template object must not be empty")
	}
	return template, nil
}

// mimeTypeAllowed checks the declared content type against the allow list.
// An empty declaration is let through so extension-based detection can run.
func (s *Server) mimeTypeAllowed(mimeType string) bool {
	if mimeType == "" || len(s.AppConfig.App.AllowedMimeTypes) == 0 {
		return true
	}
	// multipart parts may carry parameters, e.g. "text/plain; charset=utf-8"
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	for _, allowed := range s.AppConfig.App.AllowedMimeTypes {
		if strings.EqualFold(base, allowed) {
			return true
		}
	}
	return false
}
