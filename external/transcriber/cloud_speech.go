package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type speechClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type gapicSpeechClient struct {
	client *speech.Client
}

func (c *gapicSpeechClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return c.client.Recognize(ctx, req)
}

func (c *gapicSpeechClient) Close() error {
	return c.client.Close()
}

// CloudSpeechRecognizer sends each chunk to the synchronous v2 Recognize
// call with auto-detected decoding.
type CloudSpeechRecognizer struct {
	client     speechClient
	recognizer string
	language   string
	model      string
}

func NewCloudSpeechRecognizer(ctx context.Context, cfg CloudSpeechConfig) (*CloudSpeechRecognizer, error) {
	location := strings.TrimSpace(cfg.Location)
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, apperror.Configuration("detect google cloud credentials", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create cloud speech client: %w", err)
	}
	slog.Info("cloud speech client initialized", "location", location, "model", cfg.Model)
	return newCloudSpeechRecognizer(&gapicSpeechClient{client: client}, cfg), nil
}

func newCloudSpeechRecognizer(client speechClient, cfg CloudSpeechConfig) *CloudSpeechRecognizer {
	return &CloudSpeechRecognizer{
		client:     client,
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", cfg.ProjectID, strings.TrimSpace(cfg.Location)),
		language:   cfg.Language,
		model:      strings.TrimSpace(cfg.Model),
	}
}

func (c *CloudSpeechRecognizer) Name() string {
	return "google-cloud-speech"
}

func (c *CloudSpeechRecognizer) Recognize(ctx context.Context, audio []byte, _ string) (transcriber.Result, error) {
	resp, err := c.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: c.recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         c.model,
			LanguageCodes: []string{c.language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableAutomaticPunctuation: true,
			},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: audio},
	})
	if err != nil {
		return transcriber.Result{}, toUpstreamError(err)
	}

	var (
		parts      []string
		confidence float64
		found      bool
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if !found {
			confidence = float64(alts[0].GetConfidence())
			found = true
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return transcriber.Result{Text: strings.Join(parts, " "), Confidence: confidence}, nil
}

func (c *CloudSpeechRecognizer) Shutdown() error {
	return c.client.Close()
}

func toUpstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Upstream(http.StatusGatewayTimeout, "", err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return apperror.Upstream(http.StatusBadGateway, "", err)
	}
	return apperror.Upstream(grpcCodeToHTTPStatus(st.Code()), st.Message(), err)
}

func grpcCodeToHTTPStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.DeadlineExceeded, codes.Canceled:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
