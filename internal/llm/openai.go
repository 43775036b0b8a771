package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiCaller issues chat completion calls against the OpenAI API.
type openaiCaller struct {
	client      openai.Client
	model       string
	temperature float64
}

func newOpenAICaller(cfg Config) (*openaiCaller, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: openai api key missing")
	}
	return &openaiCaller{
		client:      openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (o *openaiCaller) Name() string { return "openai:" + o.model }

func (o *openaiCaller) Call(ctx context.Context, system, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
