package sentence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tbuchert/wortklang/internal/vocab"
)

// implements Generator using OpenAI Chat Completions with a strict
// JSON-schema response format
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAIGenerator(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIGenerator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (g *OpenAIGenerator) Generate(
	ctx context.Context,
	entry vocab.Entry,
) (Record, error) {
	prompt := BuildPrompt(g.options, entry)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "sentence_record",
		Description: openai.String("Distinct meanings of a vocabulary word with example sentences and translations"),
		Schema:      payloadSchema,
		Strict:      openai.Bool(true),
	}

	completion, err := g.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: g.model,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: schemaParam,
				},
			},
		},
	)
	if err != nil {
		return Record{}, fmt.Errorf("sentence generation failed: %w", err)
	}

	return g.parseResponse(completion, entry.Word)
}

func (g *OpenAIGenerator) parseResponse(
	completion *openai.ChatCompletion,
	word string,
) (Record, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return Record{}, &GenerationError{
			Word: word,
			Err:  fmt.Errorf("empty response from OpenAI"),
		}
	}

	responseText := completion.Choices[0].Message.Content
	if responseText == "" {
		return Record{}, &GenerationError{
			Word: word,
			Err:  fmt.Errorf("no text in OpenAI response"),
		}
	}

	responseText = cleanJSONResponse(responseText)

	var payload generationPayload
	if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
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

func (g *OpenAIGenerator) Close() error {
	return nil
}
