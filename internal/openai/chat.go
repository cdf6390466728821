package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is used when no chat model is configured.
const DefaultChatModel = openai.GPT4oMini

// ChatAPI defines the interface for single-turn chat completion.
type ChatAPI interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type chatAdapter struct {
	client *openai.Client
	model  string
}

func (a *chatAdapter) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatClient generates answers with an OpenAI chat model.
type ChatClient struct {
	api    ChatAPI
	system string
}

// NewChatClient creates a chat client. An empty model selects DefaultChatModel.
func NewChatClient(apiKey, model, system string) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatClient{
		api:    &chatAdapter{client: openai.NewClient(apiKey), model: model},
		system: system,
	}
}

// Generate returns the trimmed completion for prompt.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.api.Complete(ctx, c.system, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}
