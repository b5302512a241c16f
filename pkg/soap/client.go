// Package soap implements the SOAP 1.1 transport used by AFIP web
// services: envelope construction, fault extraction and HTTPS delivery
// with TLS 1.2/1.3.
package soap

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// Config contains SOAP client configuration
type Config struct {
	// Timeout bounds one request/response round trip
	Timeout time.Duration

	// MinTLSVersion defaults to TLS 1.2
	MinTLSVersion uint16

	// Logger receives per-call debug records; nil disables logging
	Logger *slog.Logger
}

// DefaultConfig returns a default SOAP configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MinTLSVersion: tls.VersionTLS12,
	}
}

// Client posts SOAP 1.1 envelopes and decodes the response body
type Client struct {
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a new SOAP client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	minTLS := config.MinTLSVersion
	if minTLS == 0 {
		minTLS = tls.VersionTLS12
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{MinVersion: minTLS},
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger,
	}
}

// Call posts the operation in as a SOAP envelope to endpoint and
// unmarshals the response body element into out. A SOAP Fault in the
// response is returned as a *Fault error.
func (c *Client) Call(ctx context.Context, endpoint, action string, in, out any) error {
	inner, err := xml.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	env := requestEnvelope{NS: envelopeNS}
	env.Body.Inner = inner
	payload, err := xml.Marshal(&env)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)
	req.Header.Set("User-Agent", "go-afip/1.0")

	callID := uuid.NewString()
	start := time.Now()
	c.logger.Debug("soap call", "id", callID, "endpoint", endpoint, "action", action)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("soap response", "id", callID, "status", resp.StatusCode,
		"bytes", len(body), "elapsed", time.Since(start))

	// Faults arrive with HTTP 500; decode the envelope before deciding.
	var renv responseEnvelope
	if err := xml.Unmarshal(body, &renv); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 512))
		}
		return fmt.Errorf("parsing response envelope: %w", err)
	}
	if renv.Body.Fault != nil {
		return renv.Body.Fault
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	if out == nil {
		return nil
	}
	if err := xml.Unmarshal(renv.Body.Inner, out); err != nil {
		return fmt.Errorf("parsing response body: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
