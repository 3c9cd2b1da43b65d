package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// ToolDescriptor represents a function/tool available to the LLM.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  string // JSON Schema string
}

// ToolCallChunk is one streamed fragment of a tool call. The provider
// splits a call across many chunks; Index ties fragments of the same
// call together, and Arguments is a partial JSON string to be
// concatenated in arrival order.
type ToolCallChunk struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Delta is one streamed chunk of a chat completion. Either Content or
// ToolCalls is set, never both.
type Delta struct {
	Content   string
	ToolCalls []ToolCallChunk
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat and returns the full content.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream performs streaming chat with function calling support.
	// The delta channel is closed when the stream ends; the error
	// channel receives at most one error.
	ChatStream(ctx context.Context, messages []Message, tools []ToolDescriptor) (<-chan Delta, <-chan error)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, deepseek, openrouter, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // request timeout in seconds (default: 120)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	httpClient := newHTTPClient()

	var clientConfig openai.ClientConfig
	switch cfg.Provider {
	case "deepseek":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL
		clientConfig.HTTPClient = httpClient

	case "openrouter":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL
		clientConfig.HTTPClient = httpClient

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL
		clientConfig.HTTPClient = httpClient

	case "openai":
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		clientConfig.HTTPClient = httpClient

	default:
		// Generic fallback for any other OpenAI-compatible provider.
		slog.Info("using generic OpenAI-compatible provider", "provider", cfg.Provider)
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		clientConfig.HTTPClient = httpClient
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    convertMessages(messages),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("LLM chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from LLM")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *service) ChatStream(ctx context.Context, messages []Message, tools []ToolDescriptor) (<-chan Delta, <-chan error) {
	deltaChan := make(chan Delta, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(deltaChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		req := openai.ChatCompletionRequest{
			Model:       s.model,
			MaxTokens:   s.maxTokens,
			Temperature: s.temperature,
			Messages:    convertMessages(messages),
		}
		if len(tools) > 0 {
			openaiTools := make([]openai.Tool, len(tools))
			for i, t := range tools {
				openaiTools[i] = openai.Tool{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        t.Name,
						Description: t.Description,
						Parameters:  json.RawMessage(t.Parameters),
					},
				}
			}
			req.Tools = openaiTools
		}

		slog.Debug("LLM stream starting", "model", s.model, "messages", len(messages), "tools", len(tools))
		stream, err := s.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			select {
			case errChan <- fmt.Errorf("create stream failed: %w", err):
			case <-ctx.Done():
			}
			return
		}
		defer func() { _ = stream.Close() }()

		chunkCount := 0
		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					slog.Debug("LLM stream completed", "chunks", chunkCount)
					return
				}
				select {
				case errChan <- fmt.Errorf("stream recv failed: %w", err):
				case <-ctx.Done():
				}
				return
			}
			if len(response.Choices) == 0 {
				continue
			}

			chunk := response.Choices[0].Delta
			delta := Delta{Content: chunk.Content}
			for _, tc := range chunk.ToolCalls {
				index := 0
				if tc.Index != nil {
					index = *tc.Index
				}
				delta.ToolCalls = append(delta.ToolCalls, ToolCallChunk{
					Index:     index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			if delta.Content == "" && len(delta.ToolCalls) == 0 {
				continue
			}

			chunkCount++
			select {
			case deltaChan <- delta:
			case <-ctx.Done():
				slog.Warn("LLM stream context cancelled during send", "chunks", chunkCount)
				return
			}
		}
	}()

	return deltaChan, errChan
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
