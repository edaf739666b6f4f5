package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"storepay-core/internal/logger"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every outbound provider call.
const DefaultTimeout = 10 * time.Second

// CertConfig holds the client-certificate material for providers that
// mandate mutual TLS.
type CertConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string // optional
}

// TransientError marks a failure where retrying may help: timeouts,
// connection errors, provider 5xx. The checkout collaborator decides
// whether to retry; the transport never retries on its own.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient provider error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Response is the raw provider reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client wraps an HTTPS client with a bounded timeout and, optionally, a
// mutual-TLS client certificate.
type Client struct {
	httpClient *http.Client
}

// New returns a plain TLS client.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewMTLS returns a client that presents the configured certificate on
// every handshake. Incomplete certificate material is a configuration
// error, never a silent downgrade to plain TLS.
func NewMTLS(cfg CertConfig, timeout time.Duration) (*Client, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("mTLS not configured: client certificate and key are required")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, errors.New("CA bundle contains no usable certificates")
		}
		tlsCfg.RootCAs = pool
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsCfg,
			},
		},
	}, nil
}

// Do sends the request and reads the full reply. Network-level failures
// come back as *TransientError; an HTTP status of any kind is returned to
// the caller for provider-specific classification.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.L().Warn("provider call timed out", zap.String("url", url))
			return nil, &TransientError{Err: err}
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &TransientError{Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
