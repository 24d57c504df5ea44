package config

import (
	"fmt"
	"time"
)

type RuntimeMode string

const (
	RuntimeModeLocal  RuntimeMode = "local"
	RuntimeModeHosted RuntimeMode = "hosted"
)

const (
	TranscriberProviderDeepgram = "deepgram"
	TranscriberProviderGoogle   = "google"
)

type Config struct {
	RuntimeMode                RuntimeMode
	HTTPAddr                   string
	DatabaseURL                string
	TranscriberProvider        string
	TranscribeLanguage         string
	TranscribeTimeout          time.Duration
	ConnectivityCheckTimeout   time.Duration
	DeepgramAPIKey             string
	DeepgramProjectID          string
	DeepgramBaseURL            string
	DeepgramModel              string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	OpenAIAPIKey               string
	OpenAIBaseURL              string
	DefaultGenerationModel     string
	GenerationTimeout          time.Duration
	ModelCacheTTL              time.Duration
	ModelRefreshTimeout        time.Duration
	EphemeralKeyTTL            time.Duration
	EncoderSampleRate          int
	NoteWebhookURL             string
	SessionIdleTimeout         time.Duration
}

func (c *Config) Validate() error {
	if c.RuntimeMode != RuntimeModeLocal && c.RuntimeMode != RuntimeModeHosted {
		return fmt.Errorf("RUNTIME_MODE must be %q or %q, got %q", RuntimeModeLocal, RuntimeModeHosted, c.RuntimeMode)
	}
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.TranscriberProvider {
	case TranscriberProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when TRANSCRIBER_PROVIDER=deepgram")
		}
		if c.RuntimeMode == RuntimeModeHosted && c.DeepgramProjectID == "" {
			return fmt.Errorf("DEEPGRAM_PROJECT_ID is required when RUNTIME_MODE=hosted")
		}
	case TranscriberProviderGoogle:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBER_PROVIDER=google")
		}
	default:
		return fmt.Errorf("TRANSCRIBER_PROVIDER must be %q or %q, got %q", TranscriberProviderDeepgram, TranscriberProviderGoogle, c.TranscriberProvider)
	}
	if c.TranscribeTimeout <= 0 {
		return fmt.Errorf("TRANSCRIBE_TIMEOUT must be positive, got %s", c.TranscribeTimeout)
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive, got %s", c.GenerationTimeout)
	}
	if c.ModelCacheTTL <= 0 {
		return fmt.Errorf("MODEL_CACHE_TTL must be positive, got %s", c.ModelCacheTTL)
	}
	if c.ModelRefreshTimeout <= 0 {
		return fmt.Errorf("MODEL_REFRESH_TIMEOUT must be positive, got %s", c.ModelRefreshTimeout)
	}
	if c.EncoderSampleRate <= 0 {
		return fmt.Errorf("ENCODER_SAMPLE_RATE must be positive, got %d", c.EncoderSampleRate)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
		{name: "OPENAI_API_KEY", value: c.OpenAIAPIKey},
		{name: "DEFAULT_GENERATION_MODEL", value: c.DefaultGenerationModel},
	}
}

func (c *Config) IsLocal() bool {
	return c.RuntimeMode == RuntimeModeLocal
}
