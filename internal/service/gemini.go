package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"pcstore/internal/config"
)

// GeminiClient serves extraction and generation from Google Gemini
type GeminiClient struct {
	config *config.GeminiConfig
	client *genai.Client
}

// NewGeminiClient opens a Gemini client. Close must be called on shutdown.
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{config: cfg, client: client}, nil
}

func (g *GeminiClient) model(system string, temperature float32, jsonOut bool) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.config.Model)
	m.SystemInstruction = genai.NewUserContent(genai.Text(system))
	m.SetTemperature(temperature)
	if g.config.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(g.config.MaxOutputTokens))
	}
	if jsonOut {
		m.ResponseMIMEType = "application/json"
	}
	return m
}

// Extract asks Gemini for the preference JSON object
func (g *GeminiClient) Extract(ctx context.Context, message string) (string, error) {
	res, err := g.model(extractorPrompt, 0.1, true).GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}
	return responseText(res)
}

// Generate writes the recommendation for the numbered product list
func (g *GeminiClient) Generate(ctx context.Context, message, productList string) (string, error) {
	m := g.model(generationPrompt, float32(g.config.Temperature), false)
	res, err := m.GenerateContent(ctx, genai.Text(generationUserPrompt(message, productList)))
	if err != nil {
		return "", err
	}
	return responseText(res)
}

// GenerateStream streams the recommendation chunk by chunk
func (g *GeminiClient) GenerateStream(ctx context.Context, message, productList string, callback StreamCallback) (string, error) {
	m := g.model(generationPrompt, float32(g.config.Temperature), false)
	iter := m.GenerateContentStream(ctx, genai.Text(generationUserPrompt(message, productList)))

	var reply strings.Builder
	for {
		res, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return reply.String(), fmt.Errorf("streaming error: %w", err)
		}

		text := partsText(res)
		if text == "" {
			continue
		}
		reply.WriteString(text)
		if err := callback(&StreamChunk{Content: text, Role: "assistant"}); err != nil {
			return reply.String(), fmt.Errorf("callback error: %w", err)
		}
	}

	if strings.TrimSpace(reply.String()) == "" {
		return "", errors.New("empty generator response")
	}
	zerolog.Ctx(ctx).Debug().Int("chars", reply.Len()).Msg("gemini stream done")
	return reply.String(), nil
}

// Close releases the underlying client
func (g *GeminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func responseText(res *genai.GenerateContentResponse) (string, error) {
	text := partsText(res)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no response from Gemini API")
	}
	return text, nil
}

func partsText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
