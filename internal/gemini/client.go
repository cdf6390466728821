package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrNoAPIKey = errors.New("gemini api key not set")

// Client owns the shared genai connection used by the embedder and generator.
type Client struct {
	genai *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{genai: cl}, nil
}

func (c *Client) Close() error {
	if c.genai != nil {
		return c.genai.Close()
	}
	return nil
}
