package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"athena-be/pkg/llm"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1beta"

	ModelNamePrefix = "models/"
)

// ErrEmptyResponse is returned when a 2xx reply carries no candidate text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// APIError is a non-2xx reply. Message is the endpoint's error.message when
// present, otherwise "API Error: {status}".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type GeminiProvider struct {
	BaseURL    string
	APIVersion string
	APIKey     string
	ModelName  string
	Client     *http.Client
}

var (
	_ llm.LLMProvider = &GeminiProvider{}
	_ llm.ModelLister = &GeminiProvider{}
)

func NewGeminiProvider(baseURL, apiKey, modelName string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIVersion: DefaultAPIVersion,
		APIKey:     apiKey,
		ModelName:  modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content *geminiContent `json:"content"`
}

type geminiGenerateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type geminiModel struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type geminiListModelsResponse struct {
	Models []geminiModel `json:"models"`
}

// StripModelPrefix turns "models/gemini-pro" into "gemini-pro".
func StripModelPrefix(name string) string {
	return strings.TrimPrefix(name, ModelNamePrefix)
}

// --- Interface Implementation ---

// Generate sends a single role-less content block, the exact shape
// {contents:[{parts:[{text}]}]}.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(opts...)

	model := g.ModelName
	if options.Model != "" {
		model = options.Model
	}
	model = StripModelPrefix(model)
	if model == "" {
		return "", fmt.Errorf("gemini: no model selected")
	}

	payload := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", g.BaseURL, g.APIVersion, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	bodyBytes, err := g.do(req)
	if err != nil {
		return "", err
	}

	var res geminiGenerateResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyResponse, err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil ||
		len(res.Candidates[0].Content.Parts) == 0 || res.Candidates[0].Content.Parts[0].Text == "" {
		return "", ErrEmptyResponse
	}

	return res.Candidates[0].Content.Parts[0].Text, nil
}

// ListModels returns the first page of the model listing.
func (g *GeminiProvider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/%s/models", g.BaseURL, g.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.APIKey)

	bodyBytes, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var res geminiListModelsResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return nil, fmt.Errorf("unmarshal model listing: %w", err)
	}

	models := make([]llm.ModelInfo, 0, len(res.Models))
	for _, m := range res.Models {
		models = append(models, llm.ModelInfo{
			Name:                       m.Name,
			SupportedGenerationMethods: m.SupportedGenerationMethods,
		})
	}
	return models, nil
}

func (g *GeminiProvider) do(req *http.Request) ([]byte, error) {
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, bodyBytes)
	}

	return bodyBytes, nil
}

func newAPIError(status int, body []byte) *APIError {
	var errRes geminiErrorResponse
	if err := json.Unmarshal(body, &errRes); err == nil && errRes.Error != nil && errRes.Error.Message != "" {
		return &APIError{StatusCode: status, Message: errRes.Error.Message}
	}
	return &APIError{StatusCode: status, Message: fmt.Sprintf("API Error: %d", status)}
}
