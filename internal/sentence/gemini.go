package sentence

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/tbuchert/wortklang/internal/vocab"
)

// implements Generator using Google Gemini
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiGenerator(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiGenerator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (g *GeminiGenerator) Generate(
	ctx context.Context,
	entry vocab.Entry,
) (Record, error) {
	prompt := BuildPrompt(g.options, entry)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return Record{}, fmt.Errorf("sentence generation failed: %w", err)
	}

	return g.parseResponse(result, entry.Word)
}

func (g *GeminiGenerator) parseResponse(
	result *genai.GenerateContentResponse,
	word string,
) (Record, error) {
	if result == nil || len(result.Candidates) == 0 {
		return Record{}, &GenerationError{
			Word: word,
			Err:  fmt.Errorf("empty response from Gemini"),
		}
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}

	if responseText == "" {
		return Record{}, &GenerationError{
			Word: word,
			Err:  fmt.Errorf("no text in Gemini response"),
		}
	}

	responseText = cleanJSONResponse(responseText)

	payload, err := extractPayload(responseText)
	if err != nil {
		return Record{}, &GenerationError{
			Word: word,
			Err: fmt.Errorf(
				"failed to parse JSON response: %w (response: %s)",
				err,
				truncateString(responseText, 200),
			),
		}
	}

	record, err := payloadToRecord(payload)
	if err != nil {
		return Record{}, &GenerationError{Word: word, Err: err}
	}

	return record, nil
}

func (g *GeminiGenerator) Close() error {
	return nil
}
