package ai

import "context"

// Provider is the uniform contract over the remote completion services.
// ParseResume builds the extraction prompt, calls the provider and returns the
// structured resume, reconciled against template when one is supplied.
type Provider interface {
	ParseResume(ctx context.Context, text string, template map[string]any) (map[string]any, error)
	TestConnection(ctx context.Context) bool
	Name() string
	IsConfigured() bool
	Close() error
}
