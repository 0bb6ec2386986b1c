package rkeeper

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// maxResponseSize is the maximum allowed response size from the XML interface (10MB)
const maxResponseSize = 10 * 1024 * 1024

const contentTypeXML = "application/xml; charset=utf-8"

// TransportError reports a network failure, a timeout or a non-2xx status
// left after retries.
type TransportError struct {
	// StatusCode is 0 when no HTTP response was received
	StatusCode int
	Attempts   int
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d after %d attempt(s)", pos.ErrTransport.Error(), e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("%s: %v", pos.ErrTransport.Error(), e.Err)
}

// Unwrap exposes both pos.ErrTransport and the underlying cause
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{pos.ErrTransport}
	}
	return []error{pos.ErrTransport, e.Err}
}

// Transport posts XML documents to the POS endpoint. It keeps no state
// between calls.
type Transport struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewTransport creates a transport for the configured endpoint
func NewTransport(config *Config, logger *zap.Logger) (*Transport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureTLS {
		base.TLSClientConfig = legacyTLSConfig()
		logger.Warn("R-Keeper transport uses legacy TLS without certificate verification",
			zap.String("endpoint", config.APIURL))
	}

	return &Transport{
		endpoint: config.APIURL,
		httpClient: &http.Client{
			Transport: base,
			// Upper bound; each call narrows it with its own deadline
			Timeout: max(config.ReadTimeout, config.WriteTimeout),
		},
		maxRetries: config.MaxRetries,
		backoff:    config.RetryBackoff,
		logger:     logger,
	}, nil
}

// legacyTLSConfig accepts any server certificate and every cipher suite Go
// implements, down to TLS 1.0.
func legacyTLSConfig() *tls.Config {
	suites := make([]uint16, 0, 32)
	for _, s := range tls.CipherSuites() {
		suites = append(suites, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		suites = append(suites, s.ID)
	}
	return &tls.Config{
		InsecureSkipVerify: true, // #nosec G402 -- opt-in via rkeeper.insecure_tls
		MinVersion:         tls.VersionTLS10,
		CipherSuites:       suites,
	}
}

// Send posts payload and returns the response body. HTTP 500, 502, 503 and
// 504 are retried with a fixed backoff; everything else fails immediately.
func (t *Transport) Send(ctx context.Context, payload []byte, timeout time.Duration) ([]byte, error) {
	attempts := 0
	for {
		attempts++
		status, body, err := t.post(ctx, payload, timeout)
		if err != nil {
			return nil, &TransportError{Attempts: attempts, Err: err}
		}
		if status >= 200 && status < 300 {
			return body, nil
		}
		if !isRetryableStatus(status) || attempts > t.maxRetries {
			return nil, &TransportError{StatusCode: status, Attempts: attempts}
		}

		t.logger.Warn("R-Keeper returned retryable status",
			zap.Int("status", status),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", t.backoff),
		)
		if err := sleepContext(ctx, t.backoff); err != nil {
			return nil, &TransportError{StatusCode: status, Attempts: attempts, Err: err}
		}
	}
}

func (t *Transport) post(ctx context.Context, payload []byte, timeout time.Duration) (int, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("rkeeper: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeXML)
	req.Header.Set("Accept", "application/xml")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("rkeeper: failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
