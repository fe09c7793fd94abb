package llm

import (
	"context"
)

// Option overrides per-call provider settings.
type Option func(*Options)

type Options struct {
	Model string // Override default model
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func ApplyOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Generate sends a single prompt to the model
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// ModelInfo is one entry of a provider's model listing.
type ModelInfo struct {
	Name                       string
	SupportedGenerationMethods []string
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
