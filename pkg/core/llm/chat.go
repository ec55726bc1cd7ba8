package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ChatProvider talks to an OpenAI-compatible /chat/completions endpoint
// (DeepSeek, Qwen via DashScope compatible mode).
type ChatProvider struct {
	Name    string
	BaseURL string
	Model   string
	APIKeys []string // env vars tried in order
	Client  *http.Client
}

var _ Provider = (*ChatProvider)(nil)

func NewDeepSeekProvider(model string) *ChatProvider {
	if model == "" {
		model = "deepseek-chat"
	}
	return &ChatProvider{
		Name:    "DEEPSEEK",
		BaseURL: envOr("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		Model:   model,
		APIKeys: []string{"DEEPSEEK_API_KEY"},
	}
}

func NewQwenProvider(model string) *ChatProvider {
	if model == "" {
		model = "qwen-max"
	}
	return &ChatProvider{
		Name:    "QWEN",
		BaseURL: envOr("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		Model:   model,
		APIKeys: []string{"DASHSCOPE_API_KEY", "QWEN_API_KEY"},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
	Temperature    float64         `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *ChatProvider) apiKey(options map[string]interface{}) string {
	if val, ok := options["api_key"].(string); ok && val != "" {
		return val
	}
	for _, env := range p.APIKeys {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

func (p *ChatProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := p.apiKey(options)
	if apiKey == "" {
		return "", fmt.Errorf("%s_API_KEY_MISSING: set one of %v", p.Name, p.APIKeys)
	}

	model := p.Model
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	reqBody := chatRequest{
		Messages: []Message{
			{Content: systemPrompt, Role: "system"},
			{Content: prompt, Role: "user"},
		},
		Model:       model,
		MaxTokens:   4096,
		Temperature: 0.2,
	}
	if val, ok := options["response_format"].(map[string]interface{}); ok && val["type"] == "json_object" {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s_MARSHAL_ERROR: %w", p.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("%s_REQ_CREATE_ERROR: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s_API_CALL_ERROR: %w", p.Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s_READ_BODY_ERROR: %w", p.Name, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s_API_ERROR: status=%d body=%s", p.Name, res.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%s_UNMARSHAL_ERROR: %w", p.Name, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%s_NO_CHOICES: %s", p.Name, string(body))
	}
	return response.Choices[0].Message.Content, nil
}

func (p *ChatProvider) AdaptInstructions(raw string) string {
	return raw
}
