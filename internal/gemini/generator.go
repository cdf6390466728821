package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const DefaultModel = "gemini-1.5-flash"

// GenerateAPI runs one prompt against a generative model.
type GenerateAPI interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type generativeAdapter struct {
	model *genai.GenerativeModel
}

func (a *generativeAdapter) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// Generator answers prompts with a Gemini model.
type Generator struct {
	api GenerateAPI
}

// NewGenerator binds model to the client. A non-empty system becomes the model's system instruction.
func NewGenerator(c *Client, model, system string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	m := c.genai.GenerativeModel(model)
	if system != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	return &Generator{api: &generativeAdapter{model: m}}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.api.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("gemini generate: empty response")
	}
	return text, nil
}
