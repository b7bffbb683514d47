package vaultclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

const httpTimeout = 30 * time.Second

type backendAResponse struct {
	Data struct {
		Data struct {
			Value string `json:"value"`
		} `json:"data"`
	} `json:"data"`
}

type backendA struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func newBackendA(cfg Config, certs CertificateProvider) (Client, error) {
	transport := &http.Transport{}

	if cfg.MTLSEnabled {
		if certs == nil {
			return nil, fmt.Errorf("%w: mTLS enabled but no CertificateProvider configured", model.ErrConfig)
		}
		var (
			cert Certificate
			err  error
		)
		if cfg.CertThumbprint != "" {
			cert, err = certs.GetRequiredByThumbprint(cfg.CertThumbprint, cfg.CertStoreName, cfg.CertStoreLoc)
		} else {
			cert, err = certs.GetRequiredBySubjectName(cfg.CertSubjectName, cfg.CertStoreName, cfg.CertStoreLoc)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: loading vault client certificate: %v", model.ErrConfig, err)
		}
		certPEM, keyPEM := cert.TLSCertificate()
		tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing vault client certificate: %v", model.ErrConfig, err)
		}
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{tlsCert},
			MinVersion:   tls.VersionTLS12,
			RootCAs:      systemCertPoolOrNil(),
		}
	}

	return &backendA{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.BearerToken,
		client:  &http.Client{Timeout: httpTimeout, Transport: transport},
		logger:  zap.L().Named("vault.backend-a"),
	}, nil
}

func systemCertPoolOrNil() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return x509.NewCertPool()
	}
	return pool
}

func (b *backendA) ProviderName() string { return "backend-a" }

func (b *backendA) GetSecret(ctx context.Context, path string) (string, error) {
	url := fmt.Sprintf("%s/v1/secret/data/%s", b.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", model.ErrTransport, err)
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if isCertificateError(err) {
			b.logger.Warn("vault tls/certificate error", zap.Error(err), zap.String("path", path))
		}
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

	var decoded backendAResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", model.ErrTransport, err)
	}

	value := decoded.Data.Data.Value
	if value == "" {
		return "", fmt.Errorf("%w: empty value at path %q", model.ErrNotFound, path)
	}
	return value, nil
}

func isCertificateError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"certificate", "x509", "tls"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
