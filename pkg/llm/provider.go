package llm

import (
	"context"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider defines the contract for any text-completion backend. The capture
// pipeline treats it as an opaque prompt -> completion call.
type Provider interface {
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
