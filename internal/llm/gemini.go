package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/contextcruncher/internal/model"
	"github.com/ppiankov/contextcruncher/internal/util"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash"
	geminiEndpoint       = "/v1beta/models/%s:generateContent"

	// maxErrorBody caps how much of an error response is kept for messages
	maxErrorBody = 4 << 10
)

// GeminiProvider implements the Provider interface for the Google Generative Language API
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Gemini API structures
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiGenerationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, model.NewConfigurationError("llm.base_url", err.Error())
	}

	modelName := config.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &GeminiProvider{
		apiKey:  strings.TrimSpace(config.APIKey),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   modelName,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the configured model
func (p *GeminiProvider) Model() string {
	return p.model
}

// RequiresAPIKey is always true for the hosted API
func (p *GeminiProvider) RequiresAPIKey() bool {
	return true
}

// IsAvailable checks the key and model by fetching the model's metadata
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s", p.baseURL, url.PathEscape(p.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Generate submits instruction and audio in a single generateContent call
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if p.apiKey == "" {
		return nil, model.NewConfigurationError("llm.api_key", "Gemini API key is not configured")
	}

	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.baseURL + fmt.Sprintf(geminiEndpoint, url.PathEscape(p.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, model.NewConfigurationError("llm.base_url", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyRequestError(ctx, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		slurp, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, classifyStatus(httpResp.StatusCode, slurp)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyRequestError(ctx, err)
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, &model.TransportError{Kind: model.TransportMalformed, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	text, err := candidateText(&gr)
	if err != nil {
		return nil, err
	}

	modelVersion := gr.ModelVersion
	if modelVersion == "" {
		modelVersion = p.model
	}

	return &GenerateResponse{
		Text:       text,
		Model:      modelVersion,
		TokensUsed: gr.UsageMetadata.TotalTokenCount,
	}, nil
}

func (p *GeminiProvider) buildRequest(req GenerateRequest) geminiRequest {
	mimeType, ok := model.NormalizeMIMEType(req.Audio.MIMEType)
	if !ok {
		mimeType = req.Audio.MIMEType
	}
	temperature := 0.2

	gr := geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{Text: req.Prompt},
					{InlineData: &geminiInlineData{
						MIMEType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(req.Audio.Data),
					}},
				},
			},
		},
		GenerationConfig: &geminiGenerationConfig{Temperature: &temperature},
	}
	if req.ResponseSchema != nil {
		gr.GenerationConfig.ResponseMIMEType = "application/json"
		gr.GenerationConfig.ResponseSchema = req.ResponseSchema
	}
	return gr
}

// candidateText joins the text parts of the first candidate
func candidateText(gr *geminiResponse) (string, error) {
	if len(gr.Candidates) == 0 {
		reason := "response has no candidates"
		if gr.PromptFeedback.BlockReason != "" {
			reason += " (blocked: " + gr.PromptFeedback.BlockReason + ")"
		}
		return "", &model.SchemaViolation{Reason: reason}
	}

	var sb strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		reason := "candidate has no text"
		if fr := gr.Candidates[0].FinishReason; fr != "" {
			reason += " (finish reason: " + fr + ")"
		}
		return "", &model.SchemaViolation{Reason: reason}
	}
	return sb.String(), nil
}

// classifyStatus maps a non-200 response to a TransportError
func classifyStatus(status int, body []byte) error {
	te := &model.TransportError{StatusCode: status}

	var apiErr geminiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		te.Message = apiErr.Error.Message
	} else {
		te.Message = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		te.Kind = model.TransportUnauthorized
	case status == http.StatusTooManyRequests:
		te.Kind = model.TransportRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		te.Kind = model.TransportTimeout
	case status >= 500:
		te.Kind = model.TransportUnavailable
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(te.Message), "api key"):
		// Gemini reports a bad key as 400 INVALID_ARGUMENT
		te.Kind = model.TransportUnauthorized
	default:
		te.Kind = model.TransportBadRequest
	}
	return te
}

// classifyRequestError maps a failed round trip to a TransportError
func classifyRequestError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &model.TransportError{Kind: model.TransportTimeout, Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &model.TransportError{Kind: model.TransportCanceled, Err: err}
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &model.TransportError{Kind: model.TransportTimeout, Err: err}
	}
	return &model.TransportError{Kind: model.TransportNetwork, Err: err}
}
