package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pcstore/internal/config"
)

// OpenAIClient handles OpenAI-compatible API interactions. The same client
// serves OpenAI, DeepSeek, Perplexity and NVIDIA bases.
type OpenAIClient struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
	extraBody  map[string]any
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	c := &OpenAIClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}

	if cfg.ChatExtraBody != "" {
		var extraBody map[string]any
		if err := json.Unmarshal([]byte(cfg.ChatExtraBody), &extraBody); err != nil {
			log.Warn().Err(err).Msg("ignoring invalid OPENAI_CHAT_EXTRA_BODY")
		} else {
			c.extraBody = extraBody
		}
	}
	return c
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ExtraBody      map[string]any  `json:"extra_body,omitempty"` // DeepSeek: {"chat_template_kwargs": {"thinking": true}}
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// streamChunk is one SSE data payload. reasoning_content is only sent by
// reasoning models (DeepSeek on NVIDIA and others).
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Role             string  `json:"role,omitempty"`
			Content          string  `json:"content,omitempty"`
			ReasoningContent *string `json:"reasoning_content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// ParseStreamChunk converts a provider chunk to a generic StreamChunk
func ParseStreamChunk(data []byte) (*StreamChunk, error) {
	var raw streamChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		delta := raw.Choices[0].Delta
		chunk.Role = delta.Role
		chunk.Content = delta.Content
		if delta.ReasoningContent != nil {
			chunk.ThinkingContent = *delta.ReasoningContent
		}
		if fr := raw.Choices[0].FinishReason; fr != nil && *fr != "" {
			chunk.Done = true
		}
	}
	return chunk, nil
}

func (c *OpenAIClient) applyDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil {
		req.ExtraBody = c.extraBody
	}
}

func (c *OpenAIClient) newRequest(ctx context.Context, req ChatCompletionRequest) (*http.Request, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	return httpReq, nil
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, errors.New("OpenAI API is not enabled (missing API key)")
	}
	c.applyDefaults(&req)

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("model", result.Model).
		Int("total_tokens", result.Usage.TotalTokens).
		Msg("chat completion done")

	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	if !c.config.Enabled {
		return errors.New("OpenAI API is not enabled (missing API key)")
	}
	c.applyDefaults(&req)
	req.Stream = true

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			done, lerr := handleStreamLine(ctx, line, callback)
			if lerr != nil {
				return lerr
			}
			if done {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}
	}
}

// handleStreamLine parses one SSE line ("data: {...}") and reports whether
// the [DONE] marker was reached
func handleStreamLine(ctx context.Context, line []byte, callback StreamCallback) (bool, error) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte("data:")) {
		return false, nil
	}

	data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
	if bytes.Equal(data, []byte("[DONE]")) {
		return true, nil
	}

	chunk, err := ParseStreamChunk(data)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("skipping unparsable stream chunk")
		return false, nil
	}
	if err := callback(chunk); err != nil {
		return false, fmt.Errorf("callback error: %w", err)
	}
	return false, nil
}

// Extract asks the model for the preference JSON object
func (c *OpenAIClient) Extract(ctx context.Context, message string) (string, error) {
	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: extractorPrompt},
			{Role: "user", Content: message},
		},
		Temperature:    0.1,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in extractor response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate writes the recommendation for the numbered product list
func (c *OpenAIClient) Generate(ctx context.Context, message, productList string) (string, error) {
	resp, err := c.ChatCompletion(ctx, generationRequest(message, productList))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("empty generator response")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams the recommendation. Reasoning chunks are passed to
// the callback but are not part of the returned reply.
func (c *OpenAIClient) GenerateStream(ctx context.Context, message, productList string, callback StreamCallback) (string, error) {
	var reply strings.Builder
	err := c.ChatCompletionStream(ctx, generationRequest(message, productList), func(chunk *StreamChunk) error {
		reply.WriteString(chunk.Content)
		if chunk.Content == "" && chunk.ThinkingContent == "" {
			return nil
		}
		return callback(chunk)
	})
	if err != nil {
		return reply.String(), fmt.Errorf("streaming error: %w", err)
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", errors.New("empty generator response")
	}
	return reply.String(), nil
}

func generationRequest(message, productList string) ChatCompletionRequest {
	return ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: generationPrompt},
			{Role: "user", Content: generationUserPrompt(message, productList)},
		},
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
