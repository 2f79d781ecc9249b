package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"

	"github.com/tbuchert/wortklang/internal/sentence"
)

// Provider converts one piece of text into a narrated audio file
// in the requested language.
type Provider interface {
	// Synthesize narrates text in the given language (ISO 639-1 code)
	// and writes the result to outPath
	Synthesize(ctx context.Context, text, language, outPath string) error

	// Name returns the provider name
	Name() string

	// Available checks whether the provider is configured and usable
	Available() error
}

// ProviderConfig holds settings for text-to-speech providers
type ProviderConfig struct {
	APIKey string

	Model string  // "gpt-4o-mini-tts", "tts-1", or "tts-1-hd"
	Voice string  // "alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "shimmer"
	Speed float64 // 0.25 to 4.0

	EspeakSpeed int // words per minute for the espeak fallback
}

// DefaultProviderConfig returns the default synthesis settings
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Model:       "gpt-4o-mini-tts",
		Voice:       "alloy",
		Speed:       1.0,
		EspeakSpeed: 150,
	}
}

// NewProvider creates a text-to-speech provider by name
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	switch name {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "espeak":
		return NewEspeakProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown speech provider: %s", name)
	}
}

// OpenAIProvider implements Provider using the OpenAI speech API.
// Calls run through a circuit breaker so a failing speech backend
// trips fast instead of timing out on every remaining field.
type OpenAIProvider struct {
	client  openai.Client
	config  ProviderConfig
	breaker *gobreaker.CircuitBreaker
}

func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	if cfg.Speed < 0.25 || cfg.Speed > 4.0 {
		return nil, fmt.Errorf("speech speed must be between 0.25 and 4.0, got %v", cfg.Speed)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "openai-speech",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		config:  cfg,
		breaker: breaker,
	}, nil
}

func (p *OpenAIProvider) Synthesize(
	ctx context.Context,
	text, language, outPath string,
) error {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.config.Model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(p.config.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(p.config.Speed),
	}

	// tts-1 models reject the instructions field
	if p.config.Model == "gpt-4o-mini-tts" {
		params.Instructions = openai.String(fmt.Sprintf(
			"The text is %s. Narrate it in %s with native pronunciation, slowly and clearly for language learners.",
			sentence.LanguageName(language),
			sentence.LanguageName(language),
		))
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.client.Audio.Speech.New(ctx, params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return fmt.Errorf("speech backend unavailable (circuit open): %w", err)
		}
		return fmt.Errorf("OpenAI speech request failed: %w", err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("OpenAI speech returned no audio data")
	}

	return nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Available() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is not set")
	}
	return nil
}

// EspeakProvider implements Provider using the espeak-ng command.
// Quality is lower than the API backends; useful offline and in tests.
type EspeakProvider struct {
	speed int
}

func NewEspeakProvider(cfg ProviderConfig) *EspeakProvider {
	speed := cfg.EspeakSpeed
	if speed <= 0 {
		speed = 150
	}
	return &EspeakProvider{speed: speed}
}

func (p *EspeakProvider) Synthesize(
	ctx context.Context,
	text, language, outPath string,
) error {
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// espeak-ng voices are selected by ISO 639-1 code
	wavPath := outPath + ".wav"
	defer os.Remove(wavPath)

	cmd := exec.CommandContext(ctx, "espeak-ng",
		"-v", language,
		"-s", fmt.Sprintf("%d", p.speed),
		"-w", wavPath,
		text,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("espeak-ng failed: %w\noutput: %s", err, output)
	}

	return convertToMP3(wavPath, outPath)
}

func (p *EspeakProvider) Name() string {
	return "espeak"
}

func (p *EspeakProvider) Available() error {
	if _, err := exec.LookPath("espeak-ng"); err != nil {
		return fmt.Errorf("espeak-ng is not installed: %w", err)
	}
	return nil
}

// FallbackProvider tries providers in order until one succeeds
type FallbackProvider struct {
	providers []Provider
}

func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

func (p *FallbackProvider) Synthesize(
	ctx context.Context,
	text, language, outPath string,
) error {
	var lastErr error
	for _, provider := range p.providers {
		if err := provider.Synthesize(ctx, text, language, outPath); err != nil {
			lastErr = fmt.Errorf("%s: %w", provider.Name(), err)
			continue
		}
		return nil
	}
	if lastErr == nil {
		return fmt.Errorf("no speech providers configured")
	}
	return fmt.Errorf("all speech providers failed: %w", lastErr)
}

func (p *FallbackProvider) Name() string {
	names := make([]string, len(p.providers))
	for i, provider := range p.providers {
		names[i] = provider.Name()
	}
	return fmt.Sprintf("fallback%v", names)
}

func (p *FallbackProvider) Available() error {
	var lastErr error
	for _, provider := range p.providers {
		if err := provider.Available(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		return fmt.Errorf("no speech providers configured")
	}
	return lastErr
}
