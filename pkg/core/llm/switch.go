package llm

import (
	"context"
	"strings"
	"sync"
)

// Switchable delegates to a provider that can be replaced at runtime
type Switchable struct {
	mu     sync.RWMutex
	name   string
	active Provider
}

var _ Provider = (*Switchable)(nil)

// NewSwitchable starts with the named provider
func NewSwitchable(name, model string) (*Switchable, error) {
	p, err := NewProvider(name, model)
	if err != nil {
		return nil, err
	}
	return &Switchable{name: normalize(name), active: p}, nil
}

// Available lists the provider names accepted by Switch
func Available() []string {
	return []string{"gemini", "deepseek", "qwen", "static"}
}

// Switch replaces the active provider
func (s *Switchable) Switch(name, model string) error {
	p, err := NewProvider(name, model)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = normalize(name)
	s.active = p
	return nil
}

// Active returns the active provider name
func (s *Switchable) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Switchable) current() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Switchable) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return s.current().GenerateResponse(ctx, prompt, systemPrompt, options)
}

func (s *Switchable) AdaptInstructions(raw string) string {
	return s.current().AdaptInstructions(raw)
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "gemini"
	}
	return name
}
