package vaultclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

type backendBResponse struct {
	Secret struct {
		Value string `json:"value"`
	} `json:"secret"`
}

type backendB struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newBackendB(cfg Config) (Client, error) {
	return &backendB{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: httpTimeout},
	}, nil
}

func (b *backendB) ProviderName() string { return "backend-b" }

func (b *backendB) GetSecret(ctx context.Context, path string) (string, error) {
	url := fmt.Sprintf("%s/api/secrets/%s", b.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", model.ErrTransport, err)
	}
	req.Header.Set("X-API-Key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", model.ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: path %q", model.ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: status %d: %s", model.ErrTransport, resp.StatusCode, string(body))
	}

	var decoded backendBResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", model.ErrTransport, err)
	}

	if decoded.Secret.Value == "" {
		return "", fmt.Errorf("%w: empty value at path %q", model.ErrNotFound, path)
	}
	return decoded.Secret.Value, nil
}
