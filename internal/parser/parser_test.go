package parser

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
	"github.com/rajibrjb/AiResumeParserApi/internal/types"
)

// fakeProvider scripts the gateway's behavior for orchestrator tests.
type fakeProvider struct {
	configured bool
	result     map[string]any
	err        error
	calls      int
	lastText   string
}

func (f *fakeProvider) ParseResume(_ context.Context, text string, _ map[string]any) (map[string]any, error) {
	f.calls++
	f.lastText = text
	return f.result, f.err
}

func (f *fakeProvider) TestConnection(context.Context) bool { return f.configured }
func (f *fakeProvider) Name() string                        { return "fake" }
func (f *fakeProvider) IsConfigured() bool                  { return f.configured }
func (f *fakeProvider) Close() error                        { return nil }

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("error")
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

func textInput(body string) types.ParseResumeInput {
	return types.ParseResumeInput{
		FileData: []byte(body),
		MimeType: "text/plain",
		Filename: "resume.txt",
	}
}

func TestParseHappyPath(t *testing.T) {
	provider := &fakeProvider{
		configured: true,
		result:     map[string]any{"fullName": "Jane Doe"},
	}
	svc := NewService(provider, testLogger(t))

	out, err := svc.Parse(context.Background(), textInput("Jane Doe, engineer"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Data["fullName"] != "Jane Doe" {
		t.Errorf("data = %#v", out.Data)
	}
	if out.Provider != "fake" {
		t.Errorf("provider = %q", out.Provider)
	}
	if provider.calls != 1 {
		t.Errorf("gateway called %d times, want exactly 1", provider.calls)
	}
}

func TestParseUnconfiguredProvider(t *testing.T) {
	provider := &fakeProvider{configured: false}
	svc := NewService(provider, testLogger(t))

	_, err := svc.Parse(context.Background(), textInput("some text"))
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Type != errors.ErrorTypeConfig {
		t.Errorf("unexpected error: %v", err)
	}
	if provider.calls != 0 {
		t.Error("gateway must not be called when unconfigured")
	}
}

func TestParseEmptyTextSkipsGateway(t *testing.T) {
	provider := &fakeProvider{configured: true}
	svc := NewService(provider, testLogger(t))

	_, err := svc.Parse(context.Background(), textInput("   \n\t  "))
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeEmptyDocument {
		t.Errorf("unexpected error: %v", err)
	}
	if provider.calls != 0 {
		t.Error("gateway must not be called for empty text")
	}
}

func TestParseUnsupportedFormatPassesThrough(t *testing.T) {
	provider := &fakeProvider{configured: true}
	svc := NewService(provider, testLogger(t))

	_, err := svc.Parse(context.Background(), types.ParseResumeInput{
		FileData: []byte("GIF89a"),
		MimeType: "image/gif",
		Filename: "photo.gif",
	})
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeUnsupportedFormat {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseProviderErrorPassesThrough(t *testing.T) {
	aiErr := errors.NewAIError(errors.ErrCodeAIParseFailed, "fake rate limit exceeded", nil)
	provider := &fakeProvider{configured: true, err: aiErr}
	svc := NewService(provider, testLogger(t))

	_, err := svc.Parse(context.Background(), textInput("some text"))
	if err != aiErr {
		t.Errorf("AI error should pass through unchanged, got %v", err)
	}
}

func TestParseUnknownErrorIsRewrapped(t *testing.T) {
	provider := &fakeProvider{configured: true, err: goerrors.New("socket weirdness")}
	svc := NewService(provider, testLogger(t))

	_, err := svc.Parse(context.Background(), textInput("some text"))
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeParsingFailed {
		t.Errorf("code = %q, want %q", appErr.Code, errors.ErrCodeParsingFailed)
	}
	if !goerrors.Is(err, provider.err) {
		t.Error("original cause must stay attached")
	}
}

func TestParseTemplateForwarded(t *testing.T) {
	provider := &fakeProvider{configured: true, result: map[string]any{}}
	svc := NewService(provider, testLogger(t))

	input := textInput("Jane")
	input.Template = map[string]any{"fullName": ""}
	if _, err := svc.Parse(context.Background(), input); err != nil {
		t.Fatal(err)
	}
	if provider.lastText == "" {
		t.Error("extracted text was not forwarded to the gateway")
	}
}
