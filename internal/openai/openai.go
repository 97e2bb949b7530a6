// Package openai is the fallback text generator used when Gemini fails or its
// budget is spent.
package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/deusflow/devbot/internal/llm"
)

const DefaultModel = goopenai.GPT4oMini

type Client struct {
	client *goopenai.Client
	model  string
}

func NewClient(apiKey, model string) *Client {
	return newClientWithConfig(goopenai.DefaultConfig(apiKey), model)
}

func newClientWithConfig(cfg goopenai.ClientConfig, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: 2048,
		Temperature:         0.95,
		TopP:                0.9,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}
