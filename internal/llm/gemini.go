package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiCaller issues JSON-mode calls against the Gemini API.
type geminiCaller struct {
	client      *genai.Client
	model       string
	temperature float64
}

func newGeminiCaller(ctx context.Context, cfg Config) (*geminiCaller, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: gemini client: %w", err)
	}
	return &geminiCaller{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (g *geminiCaller) Name() string { return "gemini:" + g.model }

func (g *geminiCaller) Call(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(float32(g.temperature)),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		config,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("llm: gemini returned no content")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
