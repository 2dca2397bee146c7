package llm

import (
	"context"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// Provider defines the interface for multimodal inference services
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the model requests are sent to
	Model() string

	// RequiresAPIKey reports whether the provider needs a credential
	RequiresAPIKey() bool

	// Generate sends exactly one request and returns the raw structured payload
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest is one atomic submission of instruction + audio
type GenerateRequest struct {
	// Prompt is the rendered instruction text
	Prompt string

	// Audio is forwarded with its declared MIME type, never transcoded
	Audio model.AudioInput

	// ResponseSchema constrains the service to a structured response
	ResponseSchema map[string]any
}

// GenerateResponse carries the service's structured payload before validation
type GenerateResponse struct {
	// Text is the JSON payload as returned
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption, when reported
	TokensUsed int
}

// Config holds inference provider configuration
type Config struct {
	// Provider name: "gemini", "static"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout bounds a single extraction call
	Timeout int // seconds

	// RequestsPerMinute throttles dispatch; 0 disables the gate
	RequestsPerMinute float64

	// StaticResponsePath feeds the static provider
	StaticResponsePath string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:           c.Provider,
		Model:              c.Model,
		APIKey:             c.APIKey,
		BaseURL:            c.BaseURL,
		Timeout:            c.Timeout,
		RequestsPerMinute:  c.RequestsPerMinute,
		StaticResponsePath: c.StaticResponsePath,
		HTTPProxy:          c.HTTPProxy,
		HTTPSProxy:         c.HTTPSProxy,
		NoProxy:            c.NoProxy,
	}
}
