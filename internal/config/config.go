// Package config provides configuration loading for the companion app.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Provider selects which language-model backend answers as the persona.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderAnthropic  Provider = "anthropic"
)

// StoreBackend selects how conversation history is persisted.
type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreSQLite StoreBackend = "sqlite"
	StoreMemory StoreBackend = "memory"
)

// DefaultPersonaPrompt defines the persona for every responder call.
const DefaultPersonaPrompt = "You are Jesus: calm, compassionate, wise. " +
	"Use modern language, be comforting and brief when asked. " +
	"No preaching; give actionable comfort and reflection."

// Config holds all configuration for the app.
type Config struct {
	// Responder settings
	Provider         Provider
	OpenRouterAPIKey string
	OpenRouterModel  string
	AnthropicAPIKey  string
	AnthropicModel   string
	PersonaPrompt    string

	// Voice synthesis settings
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// Avatar streaming settings (video mode)
	HeyGenAPIKey     string
	HeyGenAvatarName string
	HeyGenVoiceID    string

	// Local audio tooling
	AudioPlayerCmd  []string
	SpeechEngineCmd string

	// History persistence
	StoreBackend StoreBackend
	HistoryPath  string

	// Logging
	LogLevel string
	LogDir   string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("T2J")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PROVIDER", string(ProviderOpenRouter))
	v.SetDefault("OPENROUTER_MODEL", "gpt-4.1")
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	v.SetDefault("PERSONA_PROMPT", DefaultPersonaPrompt)
	v.SetDefault("AUDIO_PLAYER", "mpg123 -")
	v.SetDefault("SPEECH_ENGINE", "espeak")
	v.SetDefault("STORE_BACKEND", string(StoreFile))
	v.SetDefault("HISTORY_PATH", "history.json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "logs")

	cfg := &Config{
		Provider:          Provider(v.GetString("PROVIDER")),
		OpenRouterAPIKey:  v.GetString("OPENROUTER_API_KEY"),
		OpenRouterModel:   v.GetString("OPENROUTER_MODEL"),
		AnthropicAPIKey:   v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:    v.GetString("ANTHROPIC_MODEL"),
		PersonaPrompt:     v.GetString("PERSONA_PROMPT"),
		ElevenLabsAPIKey:  v.GetString("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: v.GetString("ELEVENLABS_VOICE_ID"),
		HeyGenAPIKey:      v.GetString("HEYGEN_API_KEY"),
		HeyGenAvatarName:  v.GetString("HEYGEN_AVATAR_NAME"),
		HeyGenVoiceID:     v.GetString("HEYGEN_VOICE_ID"),
		AudioPlayerCmd:    strings.Fields(v.GetString("AUDIO_PLAYER")),
		SpeechEngineCmd:   v.GetString("SPEECH_ENGINE"),
		StoreBackend:      StoreBackend(v.GetString("STORE_BACKEND")),
		HistoryPath:       v.GetString("HISTORY_PATH"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogDir:            v.GetString("LOG_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			errs = append(errs, "T2J_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, "T2J_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid provider %q, must be 'openrouter' or 'anthropic'", c.Provider))
	}

	switch c.StoreBackend {
	case StoreFile, StoreSQLite:
		if c.HistoryPath == "" {
			errs = append(errs, "T2J_HISTORY_PATH is required for persistent history")
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend %q, must be 'file', 'sqlite' or 'memory'", c.StoreBackend))
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateVideo checks the extra settings that video mode needs.
func (c *Config) ValidateVideo() error {
	var errs []string

	if c.HeyGenAPIKey == "" {
		errs = append(errs, "T2J_HEYGEN_API_KEY is required for video mode")
	}
	if c.HeyGenAvatarName == "" {
		errs = append(errs, "T2J_HEYGEN_AVATAR_NAME is required for video mode")
	}
	if c.HeyGenVoiceID == "" {
		errs = append(errs, "T2J_HEYGEN_VOICE_ID is required for video mode")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}
