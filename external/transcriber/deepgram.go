package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
)

const maxErrorBodyBytes = 64 << 10

type DeepgramConfig struct {
	APIKey                   string
	BaseURL                  string
	Model                    string
	Language                 string
	ConnectivityCheckTimeout time.Duration
}

type DeepgramRecognizer struct {
	apiKey       string
	baseURL      string
	model        string
	language     string
	checkTimeout time.Duration
	client       *http.Client
}

func NewDeepgramRecognizer(cfg DeepgramConfig) *DeepgramRecognizer {
	return &DeepgramRecognizer{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		language:     cfg.Language,
		checkTimeout: cfg.ConnectivityCheckTimeout,
		client:       &http.Client{},
	}
}

func (d *DeepgramRecognizer) Name() string {
	return "deepgram"
}

type deepgramListenResponse struct {
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Recognize posts the raw payload to the prerecorded endpoint. No encoding
// parameter is sent so the container is detected from the bytes.
func (d *DeepgramRecognizer) Recognize(ctx context.Context, audio []byte, mimeType string) (transcriber.Result, error) {
	if d.apiKey == "" {
		return transcriber.Result{}, apperror.Configuration("speech-to-text API key is not configured", nil)
	}
	q := url.Values{}
	q.Set("language", d.language)
	q.Set("model", d.model)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("build deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", mimeType)

	body, err := d.do(req)
	if err != nil {
		return transcriber.Result{}, err
	}
	return parseListenResponse(body), nil
}

// CheckConnectivity lists projects to verify the key. Failures carry the
// raw upstream body for debugging.
func (d *DeepgramRecognizer) CheckConnectivity(ctx context.Context) error {
	if d.apiKey == "" {
		return apperror.Configuration("speech-to-text API key is not configured", nil)
	}
	if d.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.checkTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/v1/projects", nil)
	if err != nil {
		return fmt.Errorf("build deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	_, err = d.do(req)
	return err
}

func (d *DeepgramRecognizer) do(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperror.Upstream(http.StatusGatewayTimeout, "", err)
		}
		return nil, apperror.Upstream(http.StatusBadGateway, "", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isHTTPSuccessStatus(resp.StatusCode) {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		slog.Error("deepgram returned error status", "status_code", resp.StatusCode, "path", req.URL.Path, "body", string(b))
		return nil, apperror.Upstream(resp.StatusCode, string(b), nil)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Upstream(http.StatusBadGateway, "", fmt.Errorf("read deepgram response: %w", err))
	}
	return b, nil
}

// parseListenResponse treats any deviation from the expected shape as an
// empty transcript with zero confidence.
func parseListenResponse(body []byte) transcriber.Result {
	var parsed deepgramListenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("deepgram response is not valid json; treating as empty transcript", "error", err)
		return transcriber.Result{}
	}
	if parsed.Results == nil || len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		slog.Warn("deepgram response has no alternatives; treating as empty transcript")
		return transcriber.Result{}
	}
	alt := parsed.Results.Channels[0].Alternatives[0]
	return transcriber.Result{Text: alt.Transcript, Confidence: alt.Confidence}
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
