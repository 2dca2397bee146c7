// Package pipeline runs one extraction end to end: prompt, inference,
// packaging, and (for callers that persist) writing the artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/contextcruncher/internal/llm"
	"github.com/ppiankov/contextcruncher/internal/model"
	"github.com/ppiankov/contextcruncher/internal/prompt"
)

// Pipeline orchestrates a single extraction
type Pipeline struct {
	client *llm.Client
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithClock fixes the capture time source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline around an inference client
func New(client *llm.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		client: client,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run extracts context data from one recording. It returns both artifacts
// or an error, never a partial result.
func (p *Pipeline) Run(ctx context.Context, audio model.AudioInput, policy model.IdentificationPolicy) (*model.ContextArtifact, error) {
	runID := uuid.NewString()
	logger := p.logger.With(
		"run_id", runID,
		"provider", p.client.Provider().Name(),
		"model", p.client.Provider().Model(),
		"template", prompt.TemplateVersion,
	)

	// 1. Render instruction
	instruction, err := prompt.Build(policy)
	if err != nil {
		return nil, err
	}

	// 2. Single inference round trip
	logger.Info("extraction started",
		"audio", audio.Name,
		"mime_type", audio.MIMEType,
		"audio_bytes", len(audio.Data),
		"mode", policy.Mode,
	)
	result, err := p.client.Extract(ctx, audio, instruction)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// 3. Package
	artifact, err := Pack(result, p.now())
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}

	logger.Info("extraction complete", "slug", artifact.Record.Slug)
	return artifact, nil
}
