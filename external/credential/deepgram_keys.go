package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
)

const (
	maxErrorBodyBytes = 64 << 10
	keyComment        = "soapscribe ephemeral transcription key"
)

var keyScopes = []string{"usage:write"}

type DeepgramKeyMinter struct {
	apiKey    string
	projectID string
	baseURL   string
	client    *http.Client
}

func NewDeepgramKeyMinter(apiKey, projectID, baseURL string) *DeepgramKeyMinter {
	return &DeepgramKeyMinter{
		apiKey:    apiKey,
		projectID: projectID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type createKeyRequest struct {
	Comment             string   `json:"comment"`
	Scopes              []string `json:"scopes"`
	TimeToLiveInSeconds int64    `json:"time_to_live_in_seconds"`
}

type createKeyResponse struct {
	APIKeyID string `json:"api_key_id"`
	Key      string `json:"key"`
}

func (m *DeepgramKeyMinter) MintTemporaryKey(ctx context.Context, ttl time.Duration) (string, error) {
	if m.projectID == "" {
		return "", apperror.Configuration("speech-to-text project id is not configured", nil)
	}
	b, err := json.Marshal(createKeyRequest{
		Comment:             keyComment,
		Scopes:              keyScopes,
		TimeToLiveInSeconds: int64(ttl / time.Second),
	})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/v1/projects/%s/keys", m.baseURL, url.PathEscape(m.projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperror.Upstream(http.StatusGatewayTimeout, "", err)
		}
		return "", apperror.Upstream(http.StatusBadGateway, "", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", apperror.Upstream(resp.StatusCode, string(body), nil)
	}
	var out createKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperror.Upstream(http.StatusBadGateway, "", fmt.Errorf("decode key response: %w", err))
	}
	if out.Key == "" {
		return "", apperror.Upstream(http.StatusBadGateway, "", errors.New("key response did not include a key"))
	}
	return out.Key, nil
}
