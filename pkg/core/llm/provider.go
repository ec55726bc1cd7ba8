package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProvider is returned by NewProvider for unsupported names
var ErrUnknownProvider = errors.New("unknown llm provider")

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// NewProvider builds a provider by name: gemini, deepseek, qwen or static
func NewProvider(name, model string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini", "":
		return &GeminiProvider{Model: model}, nil
	case "deepseek":
		return NewDeepSeekProvider(model), nil
	case "qwen":
		return NewQwenProvider(model), nil
	case "static":
		return &StaticProvider{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// StaticProvider returns a canned response. Used offline and in tests.
type StaticProvider struct {
	Response string
	Err      error

	// last request, for assertions
	LastPrompt       string
	LastSystemPrompt string
	LastOptions      map[string]interface{}
}

var _ Provider = (*StaticProvider)(nil)

func (p *StaticProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.LastPrompt = prompt
	p.LastSystemPrompt = systemPrompt
	p.LastOptions = options
	if p.Err != nil {
		return "", p.Err
	}
	return p.Response, nil
}

func (p *StaticProvider) AdaptInstructions(raw string) string {
	return raw
}
