package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/webhook"
)

const (
	deliveryTimeout   = 10 * time.Second
	maxErrorBodyBytes = 4 << 10

	headerSchemaVersion = "X-Soapscribe-Schema-Version"
	headerDeliveryID    = "X-Soapscribe-Delivery"
)

// HTTPSender posts finished notes to an external system. An empty URL
// disables delivery.
type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: deliveryTimeout},
	}
}

func (s *HTTPSender) SendNote(ctx context.Context, payload webhook.NotePayload) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal note payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSchemaVersion, payload.SchemaVersion)
	// Receivers dedupe on the note id.
	req.Header.Set(headerDeliveryID, payload.NoteID)

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return apperror.Upstream(http.StatusBadGateway, "", fmt.Errorf("deliver note webhook: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return apperror.Upstream(resp.StatusCode, string(b), nil)
	}
	slog.Debug("note webhook delivered", "note_id", payload.NoteID, "status_code", resp.StatusCode, "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}
