package youdao

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxlate/internal/domain"
	"voxlate/internal/errorsx"
)

const (
	DefaultEndpoint   = "wss://openapi.youdao.com/stream_speech_trans"
	defaultSampleRate = 16000
)

// Config controls request signing for the streaming translation endpoint.
type Config struct {
	AppKey     string
	AppSecret  string
	Endpoint   string
	SampleRate int
}

// Signer implements ports.URLProvider by signing URLs in process.
type Signer struct {
	cfg  Config
	now  func() time.Time
	salt func() string
}

func NewSigner(cfg Config) *Signer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	return &Signer{cfg: cfg, now: time.Now, salt: uuid.NewString}
}

func (s *Signer) StreamingURL(ctx context.Context, languages domain.LanguagePair) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonProvider)
	}
	if strings.TrimSpace(s.cfg.AppKey) == "" || strings.TrimSpace(s.cfg.AppSecret) == "" {
		return "", errorsx.Wrap(errors.New("streaming credentials are not configured"), errorsx.ReasonProvider)
	}
	if languages.Source == "" || languages.Target == "" {
		return "", errorsx.Wrap(errors.New("source and target languages are required"), errorsx.ReasonProvider)
	}

	endpoint, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("invalid streaming endpoint: %w", err), errorsx.ReasonProvider)
	}

	salt := s.salt()
	curtime := strconv.FormatInt(s.now().Unix(), 10)

	query := url.Values{}
	query.Set("appKey", s.cfg.AppKey)
	query.Set("salt", salt)
	query.Set("curtime", curtime)
	query.Set("signType", "v4")
	query.Set("sign", Sign(s.cfg.AppKey, salt, curtime, s.cfg.AppSecret))
	query.Set("from", MapLanguageCode(languages.Source))
	query.Set("to", MapLanguageCode(languages.Target))
	query.Set("format", "wav")
	query.Set("rate", strconv.Itoa(s.cfg.SampleRate))
	query.Set("channel", "1")
	query.Set("version", "v1")
	query.Set("transPattern", "sentence")
	endpoint.RawQuery = query.Encode()

	return endpoint.String(), nil
}

// Sign computes the v4 request signature: hex(sha256(appKey+salt+curtime+appSecret)).
func Sign(appKey, salt, curtime, appSecret string) string {
	sum := sha256.Sum256([]byte(appKey + salt + curtime + appSecret))
	return hex.EncodeToString(sum[:])
}
