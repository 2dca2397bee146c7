package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// NewProvider creates a new inference provider based on configuration.
// A missing API key is not an error here: Client.Extract reports it before
// any request is attempted.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "gemini", "google", "":
		return NewGeminiProvider(config)

	case "static":
		return NewStaticProviderFromFile(config.StaticResponsePath)

	default:
		return nil, model.NewConfigurationError("llm.provider",
			fmt.Sprintf("unknown provider: %s (supported: gemini, static)", config.Provider))
	}
}
