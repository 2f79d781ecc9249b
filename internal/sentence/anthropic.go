package sentence

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tbuchert/wortklang/internal/vocab"
)

// implements Generator using Anthropic Claude
type AnthropicGenerator struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicGenerator(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicGenerator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (g *AnthropicGenerator) Generate(
	ctx context.Context,
	entry vocab.Entry,
) (Record, error) {
	prompt := BuildPrompt(g.options, entry)

	message, err := g.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     g.model,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			},
		},
	)
	if err != nil {
		return Record{}, fmt.Errorf("sentence generation failed: %w", err)
	}

	return g.parseResponse(message, entry.Word)
}

func (g *AnthropicGenerator) parseResponse(
	message *anthropic.Message,
	word string,
) (Record, error) {
	if message == nil || len(message.Content) == 0 {
		return Record{}, &GenerationError{
			Word: word,
			Err:  fmt.Errorf("empty response from Anthropic"),
		}
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	if responseText == "" {
		return Record{}, &GenerationError{
			Word: word,
			Err:  fmt.Errorf("no text in Anthropic response"),
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

func (g *AnthropicGenerator) Close() error {
	return nil
}
