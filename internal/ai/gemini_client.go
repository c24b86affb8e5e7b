package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

type GeminiClientConfig struct {
	APIKey  string
	BaseURL string
	// Models is the prioritized candidate list, most capable first. Every
	// model shares the same retry budget and backoff policy.
	Models         []string
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// GeminiClient wraps the Generative Language REST API. It walks the model
// list in order, retrying transient failures per model with exponential
// backoff and jitter; fatal errors abort the whole chain.
type GeminiClient struct {
	apiKey         string
	baseURL        string
	models         []string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	timeout        time.Duration
	httpClient     *http.Client
}

func NewGeminiClient(config GeminiClientConfig) *GeminiClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if len(config.Models) == 0 {
		config.Models = []string{"gemini-2.5-flash", "gemini-2.0-flash"}
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 2 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 16 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &GeminiClient{
		apiKey:         strings.TrimSpace(config.APIKey),
		baseURL:        strings.TrimSuffix(config.BaseURL, "/"),
		models:         config.Models,
		maxRetries:     config.MaxRetries,
		initialBackoff: config.InitialBackoff,
		maxBackoff:     config.MaxBackoff,
		timeout:        config.Timeout,
		httpClient:     config.HTTPClient,
	}
}

func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

func (c *GeminiClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return GenerateResult{}, errors.New("prompt is required")
	}

	var lastErr error
	for _, model := range c.models {
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			result, callErr := c.callGenerateContent(ctx, model, request)
			if callErr == nil {
				return result, nil
			}
			lastErr = callErr

			if !isRetryableProviderError(callErr) {
				return GenerateResult{}, fmt.Errorf("model %s failed fatally: %w", model, callErr)
			}
			if attempt == c.maxRetries {
				break
			}

			sleepFor := jitter(backoffDelay(c.initialBackoff, c.maxBackoff, attempt))
			select {
			case <-ctx.Done():
				return GenerateResult{}, ctx.Err()
			case <-time.After(sleepFor):
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no candidate models configured")
	}
	return GenerateResult{}, fmt.Errorf("all models exhausted, last error: %w", lastErr)
}

func (c *GeminiClient) callGenerateContent(
	ctx context.Context,
	model string,
	request GenerateRequest,
) (GenerateResult, error) {
	generationConfig := map[string]any{
		"temperature": request.Temperature,
	}
	if request.MaxOutputTokens > 0 {
		generationConfig["maxOutputTokens"] = request.MaxOutputTokens
	}
	if len(request.ResponseSchema) > 0 {
		generationConfig["responseMimeType"] = "application/json"
		generationConfig["responseSchema"] = json.RawMessage(request.ResponseSchema)
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": request.Prompt}},
			},
		},
		"generationConfig": generationConfig,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("marshal gemini payload: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpRequest, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return GenerateResult{}, fmt.Errorf("create gemini request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return GenerateResult{}, fmt.Errorf("gemini timeout: %w", err)
		}
		return GenerateResult{}, fmt.Errorf("gemini transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("read gemini body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return GenerateResult{}, &providerHTTPError{
			Provider:   "gemini",
			StatusCode: httpResponse.StatusCode,
			Message:    message,
		}
	}

	var raw geminiGenerateContentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return GenerateResult{}, fmt.Errorf("decode gemini response: %w", err)
	}

	text := extractGeminiText(raw)
	if strings.TrimSpace(text) == "" {
		return GenerateResult{}, ErrEmptyResponse
	}

	return GenerateResult{
		Text:    text,
		ModelID: firstNonEmpty(raw.ModelVersion, model),
		Usage: TokenUsage{
			InputTokens:  raw.UsageMetadata.PromptTokenCount,
			OutputTokens: raw.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  raw.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

type geminiGenerateContentResponse struct {
	ModelVersion string `json:"modelVersion"`
	Candidates   []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func extractGeminiText(response geminiGenerateContentResponse) string {
	if len(response.Candidates) == 0 {
		return ""
	}
	fragments := make([]string, 0, len(response.Candidates[0].Content.Parts))
	for _, part := range response.Candidates[0].Content.Parts {
		if strings.TrimSpace(part.Text) == "" {
			continue
		}
		fragments = append(fragments, part.Text)
	}
	return strings.TrimSpace(strings.Join(fragments, "\n"))
}

func backoffDelay(initial, max time.Duration, attempt int) time.Duration {
	delay := initial << uint(attempt)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// jitter spreads a delay by ±20% so parallel handlers retrying against the
// same overloaded model do not synchronize.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := float64(base) * 0.2
	low := float64(base) - delta
	return time.Duration(low + rand.Float64()*2*delta)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
