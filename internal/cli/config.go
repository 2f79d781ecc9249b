package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/tbuchert/wortklang/internal/sentence"
)

// initConfig wires viper: an optional YAML config file plus
// WORTKLANG_* environment variables.
func initConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wortklang")
	}

	viper.SetEnvPrefix("WORTKLANG")
	viper.AutomaticEnv()

	// a missing config file is fine, env and flags cover everything
	_ = viper.ReadInConfig()
}

// GetOpenAIKey resolves the OpenAI API key, environment first
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("openai_api_key")
}

// GetAnthropicKey resolves the Anthropic API key, environment first
func GetAnthropicKey() string {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("anthropic_api_key")
}

// GetGeminiKey resolves the Gemini API key, environment first
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("gemini_api_key")
}

// generatorAPIKey resolves the key for a sentence provider, trying an
// explicit flag value before the environment
func generatorAPIKey(provider sentence.Provider, flagKey string) (string, error) {
	if flagKey != "" {
		return flagKey, nil
	}

	var key, envVar string
	switch provider {
	case sentence.ProviderOpenAI:
		key, envVar = GetOpenAIKey(), "OPENAI_API_KEY"
	case sentence.ProviderAnthropic:
		key, envVar = GetAnthropicKey(), "ANTHROPIC_API_KEY"
	case sentence.ProviderGemini:
		key, envVar = GetGeminiKey(), "GEMINI_API_KEY"
	default:
		return "", fmt.Errorf("unsupported sentence provider: %s", provider)
	}

	if key == "" {
		return "", fmt.Errorf(
			"API key is required: use --api-key flag or set %s environment variable",
			envVar,
		)
	}
	return key, nil
}
