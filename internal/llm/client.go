package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/contextcruncher/internal/model"
	"github.com/ppiankov/contextcruncher/internal/prompt"
	"github.com/ppiankov/contextcruncher/internal/worker"
)

const schemaResource = "extraction-result.json"

// Client submits audio + instruction to a Provider and validates the response.
// It never retries, caches or coalesces: one Extract call is one request.
type Client struct {
	provider Provider
	config   Config
	schema   *jsonschema.Schema
	gate     *worker.Limiter
	logger   *slog.Logger
}

// NewClient wires a provider with the response contract.
// The configuration is captured here; Extract never consults the environment.
func NewClient(config Config, provider Provider, logger *slog.Logger) (*Client, error) {
	if provider == nil {
		return nil, model.NewConfigurationError("llm.provider", "no provider configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	schema, err := compileResponseSchema()
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	return &Client{
		provider: provider,
		config:   config,
		schema:   schema,
		gate:     worker.NewPerMinuteLimiter(config.RequestsPerMinute),
		logger:   logger.With("provider", provider.Name(), "model", provider.Model()),
	}, nil
}

// Provider returns the underlying provider
func (c *Client) Provider() Provider {
	return c.provider
}

// Extract sends one request and returns a validated result.
// Configuration problems are reported before anything is dispatched.
func (c *Client) Extract(ctx context.Context, audio model.AudioInput, instruction string) (*model.ExtractionResult, error) {
	if c.provider.RequiresAPIKey() && strings.TrimSpace(c.config.APIKey) == "" {
		return nil, model.NewConfigurationError("llm.api_key", "no API key configured for provider "+c.provider.Name())
	}
	if err := audio.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, model.NewConfigurationError("prompt", "instruction is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, classifyRequestError(ctx, err)
	}

	if c.gate != nil {
		if err := c.gate.Wait(ctx, c.provider.Name()+"/"+c.provider.Model()); err != nil {
			return nil, classifyRequestError(ctx, err)
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	c.logger.Debug("dispatching extraction request",
		"mime_type", audio.MIMEType,
		"audio_bytes", len(audio.Data),
		"prompt_chars", len(instruction),
	)

	start := time.Now()
	resp, err := c.provider.Generate(ctxWithTimeout, GenerateRequest{
		Prompt:         instruction,
		Audio:          audio,
		ResponseSchema: prompt.ServiceResponseSchema(),
	})
	if err != nil {
		return nil, classify(ctxWithTimeout, err)
	}

	result, err := c.decode(resp.Text)
	if err != nil {
		c.logger.Warn("response rejected", "error", err, "payload_chars", len(resp.Text))
		return nil, err
	}

	c.logger.Info("extraction response accepted",
		"slug", result.Slug,
		"tokens", resp.TokensUsed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

func (c *Client) timeout() time.Duration {
	if c.config.Timeout > 0 {
		return time.Duration(c.config.Timeout) * time.Second
	}
	return 120 * time.Second
}

// decode parses and validates the payload. Nothing is repaired: a payload
// wrapped in prose or a code fence is rejected like any other malformed one.
func (c *Client) decode(text string) (*model.ExtractionResult, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &model.SchemaViolation{Reason: fmt.Sprintf("payload is not valid JSON: %v", err)}
	}

	if err := c.schema.Validate(doc); err != nil {
		return nil, schemaViolationFrom(err)
	}

	var result model.ExtractionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, &model.SchemaViolation{Reason: fmt.Sprintf("decode result: %v", err)}
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

func compileResponseSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, strings.NewReader(prompt.ResponseJSONSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaResource)
}

// schemaViolationFrom reports the innermost validation failure
func schemaViolationFrom(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &model.SchemaViolation{Reason: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &model.SchemaViolation{
		Field:  strings.TrimPrefix(ve.InstanceLocation, "/"),
		Reason: ve.Message,
	}
}

// classify passes typed errors through and maps everything else to a TransportError
func classify(ctx context.Context, err error) error {
	var (
		ce *model.ConfigurationError
		te *model.TransportError
		sv *model.SchemaViolation
	)
	if errors.As(err, &ce) || errors.As(err, &te) || errors.As(err, &sv) {
		return err
	}
	return classifyRequestError(ctx, err)
}
