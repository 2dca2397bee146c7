package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// DefaultStaticResponse is served by the static provider when no payload file is set
const DefaultStaticResponse = `{
  "title": "Movie Preferences",
  "slug": "movie_preferences",
  "markdownBody": "## Favorite Genres\n\n- the user enjoys science fiction films\n- the user enjoys slow-paced thrillers\n\n## Dislikes\n\n- the user does not enjoy horror films"
}`

// StaticProvider returns a fixed payload without any network access.
// It backs offline demo runs and tests.
type StaticProvider struct {
	payload string
}

// NewStaticProvider serves payload verbatim
func NewStaticProvider(payload string) *StaticProvider {
	return &StaticProvider{payload: payload}
}

// NewStaticProviderFromFile loads the payload from path, or uses the default payload
func NewStaticProviderFromFile(path string) (*StaticProvider, error) {
	if path == "" {
		return NewStaticProvider(DefaultStaticResponse), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewConfigurationError("llm.static_response_path", fmt.Sprintf("read payload: %v", err))
	}
	return NewStaticProvider(string(data)), nil
}

// Name returns the provider name
func (p *StaticProvider) Name() string {
	return "static"
}

// Model returns a fixed pseudo model name
func (p *StaticProvider) Model() string {
	return "static"
}

// RequiresAPIKey is false: nothing leaves the process
func (p *StaticProvider) RequiresAPIKey() bool {
	return false
}

// IsAvailable always reports true
func (p *StaticProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// Generate returns the fixed payload
func (p *StaticProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &GenerateResponse{Text: p.payload, Model: p.Model()}, nil
}
