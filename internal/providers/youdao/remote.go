package youdao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voxlate/internal/domain"
	"voxlate/internal/errorsx"
)

// RemoteURLProvider fetches signed URLs from a signer service so credentials
// never reach the desktop client.
type RemoteURLProvider struct {
	baseURL string
	client  *http.Client
}

func NewRemoteURLProvider(baseURL string, timeout time.Duration) *RemoteURLProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteURLProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type streamURLResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

func (p *RemoteURLProvider) StreamingURL(ctx context.Context, languages domain.LanguagePair) (string, error) {
	if p.baseURL == "" {
		return "", errorsx.Wrap(errors.New("signer service URL is not configured"), errorsx.ReasonProvider)
	}

	query := url.Values{}
	query.Set("source", languages.Source)
	query.Set("target", languages.Target)
	endpoint := p.baseURL + "/api/stream-url?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("invalid signer request: %w", err), errorsx.ReasonProvider)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("signer request failed: %w", err), errorsx.ReasonProvider)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("failed to read signer response: %w", err), errorsx.ReasonProvider)
	}

	var decoded streamURLResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", errorsx.Wrap(fmt.Errorf("invalid signer response (status %d): %w", resp.StatusCode, err), errorsx.ReasonProvider)
	}
	if decoded.Error != "" {
		return "", errorsx.Wrap(errors.New(decoded.Error), errorsx.ReasonProvider)
	}
	if resp.StatusCode != http.StatusOK || decoded.URL == "" {
		return "", errorsx.Wrap(fmt.Errorf("signer returned status %d without a url", resp.StatusCode), errorsx.ReasonProvider)
	}
	return decoded.URL, nil
}
