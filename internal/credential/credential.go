package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/config"
)

type Credential struct {
	Key       string
	Ephemeral bool
	ExpiresAt *time.Time
}

// KeyMinter issues a short-lived, narrowly scoped key from the long-lived one.
type KeyMinter interface {
	MintTemporaryKey(ctx context.Context, ttl time.Duration) (string, error)
}

type Issuer struct {
	mode   config.RuntimeMode
	rawKey string
	minter KeyMinter
	ttl    time.Duration
	now    func() time.Time

	// unavailable, when set, is returned as a configuration error by Issue.
	unavailable string
}

func NewIssuer(mode config.RuntimeMode, rawKey string, minter KeyMinter, ttl time.Duration) *Issuer {
	return &Issuer{mode: mode, rawKey: rawKey, minter: minter, ttl: ttl, now: time.Now}
}

// NewUnavailableIssuer returns an Issuer that refuses every request with reason.
func NewUnavailableIssuer(reason string) *Issuer {
	return &Issuer{unavailable: reason, now: time.Now}
}

// Issue returns the raw key only in local mode. Every other mode mints an
// ephemeral key so the long-lived secret never reaches a client.
func (i *Issuer) Issue(ctx context.Context) (Credential, error) {
	if i.unavailable != "" {
		return Credential{}, apperror.Configuration(i.unavailable, nil)
	}
	if i.rawKey == "" {
		return Credential{}, apperror.Configuration("speech-to-text API key is not configured", nil)
	}
	if i.mode == config.RuntimeModeLocal {
		return Credential{Key: i.rawKey}, nil
	}
	if i.minter == nil {
		return Credential{}, apperror.Configuration("ephemeral key minting is not configured", nil)
	}
	key, err := i.minter.MintTemporaryKey(ctx, i.ttl)
	if err != nil {
		return Credential{}, fmt.Errorf("mint temporary key: %w", err)
	}
	expires := i.now().Add(i.ttl)
	slog.Debug("issued ephemeral transcription key", "expires_at", expires)
	return Credential{Key: key, Ephemeral: true, ExpiresAt: &expires}, nil
}
