package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/JexSrs/go-ollama"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"

	"github.com/verte-zerg/revise/internal/config"
)

// Supported providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	maxRetries         = 2
	anthropicMaxTokens = 4096
)

var defaultKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// NewClient builds the client for the configured provider.
func NewClient(s config.LLMSettings) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	switch provider {
	case ProviderOllama:
		return NewOllama(s.Host, s.Model)
	case ProviderOpenAI, ProviderAnthropic:
		envName := s.APIKeyEnv
		if envName == "" {
			envName = defaultKeyEnv[provider]
		}
		key := os.Getenv(envName)
		if key == "" {
			return nil, fmt.Errorf("missing API key: set %s", envName)
		}
		if provider == ProviderOpenAI {
			return NewOpenAI(key, s.Host, s.Model), nil
		}
		return NewAnthropic(key, s.Host, s.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
}

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	client *ollama.Ollama
	model  string
}

// NewOllama connects to the Ollama server at host.
func NewOllama(host, model string) (*OllamaClient, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	return &OllamaClient{client: ollama.New(*u), model: model}, nil
}

// Request implements Client. The underlying API is not cancellable, so ctx
// is only checked before the call.
func (c *OllamaClient) Request(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := c.client.Generate(
		c.client.Generate.WithModel(c.model),
		c.client.Generate.WithSystem(system),
		c.client.Generate.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	if !res.Done {
		return "", errors.New("ollama response not finished")
	}
	if strings.TrimSpace(res.Response) == "" {
		return "", ErrEmptyResponse
	}
	return res.Response, nil
}

// OpenAIClient uses the chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a client. An empty baseURL keeps the public endpoint.
func NewOpenAI(apiKey, baseURL, model string) *OpenAIClient {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}
}

// Request implements Client.
func (c *OpenAIClient) Request(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// AnthropicClient uses the messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropic builds a client. An empty baseURL keeps the public endpoint.
func NewAnthropic(apiKey, baseURL, model string) *AnthropicClient {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model}
}

// Request implements Client.
func (c *AnthropicClient) Request(ctx context.Context, system, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message failed: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
