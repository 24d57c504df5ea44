package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/soapscribe/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	RuntimeMode                string        `env:"RUNTIME_MODE" envDefault:"hosted"`
	HTTPAddr                   string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL                string        `env:"DATABASE_URL,required"`
	TranscriberProvider        string        `env:"TRANSCRIBER_PROVIDER" envDefault:"deepgram"`
	TranscribeLanguage         string        `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	TranscribeTimeout          time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"30s"`
	ConnectivityCheckTimeout   time.Duration `env:"CONNECTIVITY_CHECK_TIMEOUT" envDefault:"10s"`
	DeepgramAPIKey             string        `env:"DEEPGRAM_API_KEY"`
	DeepgramProjectID          string        `env:"DEEPGRAM_PROJECT_ID"`
	DeepgramBaseURL            string        `env:"DEEPGRAM_BASE_URL" envDefault:"https://api.deepgram.com"`
	DeepgramModel              string        `env:"DEEPGRAM_MODEL" envDefault:"nova-2-medical"`
	GoogleCloudProjectID       string        `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string        `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string        `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string        `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	OpenAIAPIKey               string        `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL              string        `env:"OPENAI_BASE_URL"`
	DefaultGenerationModel     string        `env:"DEFAULT_GENERATION_MODEL" envDefault:"gpt-4o"`
	GenerationTimeout          time.Duration `env:"GENERATION_TIMEOUT" envDefault:"90s"`
	ModelCacheTTL              time.Duration `env:"MODEL_CACHE_TTL" envDefault:"5s"`
	ModelRefreshTimeout        time.Duration `env:"MODEL_REFRESH_TIMEOUT" envDefault:"3s"`
	EphemeralKeyTTL            time.Duration `env:"EPHEMERAL_KEY_TTL" envDefault:"1h"`
	EncoderSampleRate          int           `env:"ENCODER_SAMPLE_RATE" envDefault:"44100"`
	NoteWebhookURL             string        `env:"NOTE_WEBHOOK_URL"`
	SessionIdleTimeout         time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
}

// Load reads .env when present, then parses the process environment.
func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}
	return parse()
}

func parse() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		RuntimeMode:                internalconfig.RuntimeMode(raw.RuntimeMode),
		HTTPAddr:                   raw.HTTPAddr,
		DatabaseURL:                raw.DatabaseURL,
		TranscriberProvider:        raw.TranscriberProvider,
		TranscribeLanguage:         raw.TranscribeLanguage,
		TranscribeTimeout:          raw.TranscribeTimeout,
		ConnectivityCheckTimeout:   raw.ConnectivityCheckTimeout,
		DeepgramAPIKey:             raw.DeepgramAPIKey,
		DeepgramProjectID:          raw.DeepgramProjectID,
		DeepgramBaseURL:            raw.DeepgramBaseURL,
		DeepgramModel:              raw.DeepgramModel,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		OpenAIBaseURL:              raw.OpenAIBaseURL,
		DefaultGenerationModel:     raw.DefaultGenerationModel,
		GenerationTimeout:          raw.GenerationTimeout,
		ModelCacheTTL:              raw.ModelCacheTTL,
		ModelRefreshTimeout:        raw.ModelRefreshTimeout,
		EphemeralKeyTTL:            raw.EphemeralKeyTTL,
		EncoderSampleRate:          raw.EncoderSampleRate,
		NoteWebhookURL:             raw.NoteWebhookURL,
		SessionIdleTimeout:         raw.SessionIdleTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
