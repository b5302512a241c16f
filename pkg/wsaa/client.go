package wsaa

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/altafiscal/go-afip/pkg/credential"
	"github.com/altafiscal/go-afip/pkg/soap"
)

// DefaultTicketTTL is how long a cached ticket is considered reusable.
// WSAA issues tickets valid for 12 hours; 5 hours leaves ample margin.
const DefaultTicketTTL = 5 * time.Hour

// AuthError reports a failed ticket acquisition. FaultCode and
// FaultMessage carry the remote fault when the failure came from WSAA
// itself. Authentication is never retried automatically.
type AuthError struct {
	FaultCode    string
	FaultMessage string
	Err          error
}

func (e *AuthError) Error() string {
	if e.FaultCode != "" {
		return fmt.Sprintf("wsaa authentication failed: %s: %s", e.FaultCode, e.FaultMessage)
	}
	return "wsaa authentication failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// ClientConfig holds configuration for the WSAA client
type ClientConfig struct {
	// Credential signs ticket requests and keys the cache
	Credential *credential.Credential

	// Endpoint is the LoginCms service URL
	Endpoint string

	// CacheDir is where tickets are cached on disk
	CacheDir string

	// TicketTTL defaults to DefaultTicketTTL
	TicketTTL time.Duration

	// Signer defaults to an in-process CMSSigner
	Signer Signer

	// SOAP defaults to a client with a 30s timeout
	SOAP *soap.Client

	// Logger defaults to a discard logger
	Logger *slog.Logger
}

// Client obtains tickets, consulting the on-disk cache first and only
// signing and calling WSAA when no usable ticket exists.
type Client struct {
	cred     *credential.Credential
	endpoint string
	ttl      time.Duration
	store    *FileStore
	signer   Signer
	soap     *soap.Client
	builder  *RequestBuilder
	logger   *slog.Logger
}

// NewClient creates a WSAA client.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Credential == nil {
		return nil, fmt.Errorf("credential is required")
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	ttl := config.TicketTTL
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}

	store, err := NewFileStore(config.CacheDir, ttl)
	if err != nil {
		return nil, err
	}

	signer := config.Signer
	if signer == nil {
		signer, err = NewCMSSigner(config.Credential)
		if err != nil {
			return nil, err
		}
	}

	soapClient := config.SOAP
	if soapClient == nil {
		soapClient = soap.NewClient(nil)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		cred:     config.Credential,
		endpoint: config.Endpoint,
		ttl:      ttl,
		store:    store,
		signer:   signer,
		soap:     soapClient,
		builder:  NewRequestBuilder(nil),
		logger:   logger,
	}, nil
}

// loginCms is the single WSAA operation
type loginCmsRequest struct {
	XMLName xml.Name `xml:"http://wsaa.view.sua.dvadac.desein.afip.gov loginCms"`
	In0     string   `xml:"in0"`
}

type loginCmsResponse struct {
	XMLName xml.Name `xml:"loginCmsResponse"`
	Return  string   `xml:"loginCmsReturn"`
}

// Authenticate returns a valid ticket for service.
//
// A cached ticket within its TTL is returned without any network call.
// Otherwise a fresh TRA is built, signed and exchanged via LoginCms, and
// the resulting ticket replaces the cache entry. A cache write failure
// is logged and ignored: the ticket is still returned.
func (c *Client) Authenticate(ctx context.Context, service string) (*Ticket, error) {
	fp := Fingerprint(service, c.cred)

	if ticket, ok := c.store.Load(fp); ok {
		c.logger.Debug("reusing cached ticket", "service", service,
			"expires", ticket.ExpirationTime)
		return ticket, nil
	}

	tra := c.builder.New(service, c.ttl)
	traXML, err := tra.XML()
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("serializing TRA: %w", err)}
	}

	signed, err := c.signer.Sign(traXML)
	if err != nil {
		var sigErr *SigningError
		if errors.As(err, &sigErr) {
			return nil, err
		}
		return nil, &SigningError{Err: err}
	}

	c.logger.Info("requesting ticket", "service", service, "endpoint", c.endpoint)

	var resp loginCmsResponse
	err = c.soap.Call(ctx, c.endpoint, "", &loginCmsRequest{In0: signed}, &resp)
	if err != nil {
		var fault *soap.Fault
		if errors.As(err, &fault) {
			return nil, &AuthError{FaultCode: fault.Code, FaultMessage: fault.Message, Err: fault}
		}
		return nil, &AuthError{Err: err}
	}

	ticket, err := ParseTicket([]byte(resp.Return))
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	if err := c.store.Save(fp, ticket); err != nil {
		// Non-fatal: the ticket works for this run even if uncached.
		c.logger.Warn("caching ticket failed", "service", service, "error", err)
	}

	return ticket, nil
}
