// Package types holds the request/response shapes shared by the AI gateway,
// the parsing service and the HTTP layer.
package types

// ParseResumeInput carries one upload through the parsing pipeline.
type ParseResumeInput struct {
	FileData []byte         `json:"-"`
	MimeType string         `json:"mime_type"`
	Filename string         `json:"filename"`
	Template map[string]any `json:"template,omitempty"`
}

// ParseResumeOutput is the structured result returned to the caller.
type ParseResumeOutput struct {
	Data     map[string]any `json:"data"`
	Provider string         `json:"provider"`
	Filename string         `json:"filename,omitempty"`
}

// HealthStatus reports service and provider readiness.
type HealthStatus struct {
	Status     string `json:"status"`
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Connected  *bool  `json:"connected,omitempty"`
	Version    string `json:"version,omitempty"`
}

// QuotaStatus reports one identity's standing against the daily ceiling.
type QuotaStatus struct {
	Identity  string `json:"identity"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// DefaultResumeTemplate returns the built-in schema-by-example used when the
// caller does not supply a template. Callers own the returned map.
func DefaultResumeTemplate() map[string]any {
	return map[string]any{
		"fullName": "",
		"email":    "",
		"phone":    "",
		"location": "",
		"summary":  "",
		"skills":   []any{},
		"experience": []any{
			map[string]any{
				"company":     "",
				"title":       "",
				"location":    "",
				"startDate":   "",
				"endDate":     "",
				"description": "",
			},
		},
		"education": []any{
			map[string]any{
				"institution": "",
				"degree":      "",
				"field":       "",
				"startDate":   "",
				"endDate":     "",
			},
		},
		"certifications": []any{},
		"languages":      []any{},
		"links": map[string]any{
			"linkedin": "",
			"github":   "",
			"website":  "",
		},
	}
}
