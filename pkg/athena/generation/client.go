// Package generation invokes the generation endpoint and normalizes its
// outcomes into a single error type.
package generation

import (
	"context"
	"errors"
	"net/url"

	"athena-be/internal/constant"
	"athena-be/internal/pkg/logger"
	"athena-be/pkg/athena/prompt"
	"athena-be/pkg/llm"
	"athena-be/pkg/llm/gemini"
)

const logModule = "LLM"

type ErrorKind string

const (
	KindStatus    ErrorKind = "status"
	KindEmpty     ErrorKind = "empty"
	KindTransport ErrorKind = "transport"
)

const (
	MessageNoResponse      = "No response."
	MessageFailedToConnect = "Failed to connect."
)

// GenerationError is every failure of a generate round trip.
type GenerationError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Client struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewClient(provider llm.LLMProvider, logger logger.ILogger) *Client {
	return &Client{
		provider: provider,
		logger:   logger,
	}
}

// Generate performs a single round trip. Any error returned is a
// *GenerationError.
func (c *Client) Generate(ctx context.Context, modelID, systemInstruction, userQuery string) (string, error) {
	fullPrompt := prompt.Build(systemInstruction, userQuery)

	c.logger.Debug(logModule, "Generate request", map[string]interface{}{
		"model":        modelID,
		"query_length": len(userQuery),
	})

	text, err := c.provider.Generate(ctx, fullPrompt, llm.WithModel(modelID))
	if err != nil {
		genErr := classify(err)
		c.logger.Warn(logModule, "Generate failed", map[string]interface{}{
			"model":  modelID,
			"kind":   string(genErr.Kind),
			"status": genErr.Status,
			"error":  err.Error(),
		})
		return "", genErr
	}

	c.logger.Debug(logModule, "Generate response", map[string]interface{}{
		"model":           modelID,
		"response_length": len(text),
	})
	return text, nil
}

func classify(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		return &GenerationError{Kind: KindStatus, Status: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}

	if errors.Is(err, gemini.ErrEmptyResponse) {
		return &GenerationError{Kind: KindEmpty, Message: MessageNoResponse, Err: err}
	}

	msg := MessageFailedToConnect
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err.Error() != "" {
		msg = urlErr.Err.Error()
	}
	return &GenerationError{Kind: KindTransport, Message: msg, Err: err}
}

// FormatError renders err as the visible chat text of a failed generation.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return constant.ChatErrorPrefix + genErr.Message
	}
	return constant.ChatErrorPrefix + err.Error()
}
