package sentence

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/tbuchert/wortklang/internal/vocab"
)

// wire schema for generated material: four lists of equal length,
// index i across all four describing one distinct meaning
type generationPayload struct {
	SourceWord     []string `json:"source_word"     jsonschema_description:"Translation of the word for each distinct meaning, in the learner's language"`
	TargetWord     []string `json:"target_word"     jsonschema_description:"The studied word for each distinct meaning, in the language being learned"`
	SourceSentence []string `json:"source_sentence" jsonschema_description:"Translation of each example sentence, in the learner's language"`
	TargetSentence []string `json:"target_sentence" jsonschema_description:"One example sentence per meaning, in the language being learned"`
}

// GenerateSchema builds a strict JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var payloadSchema = GenerateSchema[generationPayload]()

// BuildPrompt creates the sentence generation prompt for LLM providers
func BuildPrompt(opts Options, entry vocab.Entry) string {
	source := LanguageName(opts.SourceLanguage)
	target := LanguageName(opts.TargetLanguage)
	level := strings.ToUpper(string(entry.Level))

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"You are creating %s learning material for %s speakers.\n\n",
		target,
		source,
	))
	sb.WriteString(fmt.Sprintf(
		"The %s %s to study is: %q\n\n",
		target,
		entry.Type,
		entry.Word,
	))

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString(
		"1. Enumerate only the semantically DISTINCT meanings of the word. Synonyms of the same meaning count once.\n",
	)
	sb.WriteString(fmt.Sprintf(
		"2. For each meaning, write one example sentence in %s at CEFR level %s that uses the word in that meaning.\n",
		target,
		level,
	))
	sb.WriteString(fmt.Sprintf(
		"3. Translate each example sentence into %s.\n",
		source,
	))
	sb.WriteString(
		"4. Sentences should be creative, interesting and fun.\n",
	)
	sb.WriteString(
		"5. Return ONLY a JSON object with exactly these four keys, each a list of strings:\n",
	)
	sb.WriteString(fmt.Sprintf(
		"   \"target_word\" (the %s word per meaning), \"source_word\" (its %s translation per meaning), \"target_sentence\" (the %s example sentences), \"source_sentence\" (their %s translations).\n",
		target,
		source,
		target,
		source,
	))
	sb.WriteString(
		"6. All four lists must have the same length: one element per distinct meaning.\n",
	)
	sb.WriteString(
		"7. Do not add any explanation or markdown formatting.\n",
	)

	if opts.Prompt != "" {
		sb.WriteString(
			fmt.Sprintf("\nAdditional instructions: %s\n", opts.Prompt),
		)
	}

	return sb.String()
}

// converts a wire payload into a validated Record
func payloadToRecord(p generationPayload) (Record, error) {
	record := Record{
		SourceWords:     p.SourceWord,
		TargetWords:     p.TargetWord,
		SourceSentences: p.SourceSentence,
		TargetSentences: p.TargetSentence,
	}
	if err := record.Validate(); err != nil {
		return Record{}, err
	}
	return record, nil
}

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	jsonBlockRegex := regexp.MustCompile("```(?:json)?\\s*")
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// fixes invalid JSON escape sequences the model sometimes emits,
// escaping the backslash so the decoder keeps the literal text
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if i < len(s)-1 && s[i] == '\\' {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				result.WriteByte(s[i])
				result.WriteByte(s[i+1])
				i += 2
			default:
				result.WriteString("\\\\")
				result.WriteByte(next)
				i += 2
			}
		} else {
			result.WriteByte(s[i])
			i++
		}
	}

	return result.String()
}

// extractPayload scans free-form model output for the first JSON object
// that carries the four-list schema. Malformed output is an error,
// never silently truncated.
func extractPayload(text string) (generationPayload, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}

		var payload generationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		if len(payload.SourceWord) > 0 || len(payload.TargetWord) > 0 ||
			len(payload.SourceSentence) > 0 || len(payload.TargetSentence) > 0 {
			return payload, nil
		}
	}

	return generationPayload{}, fmt.Errorf("no valid sentence JSON found in response")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
