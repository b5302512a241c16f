// Package wsfe binds the WSFEv1 service (domestic electronic invoicing,
// CAE authorization) to the generic authorization flow.
//
// Other fiscal services (WSMTXCA, WSLSP, WSBFE, ...) follow the same
// authorize.Binding contract; this package ships the binding for the one
// service virtually every taxpayer uses.
package wsfe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/altafiscal/go-afip/pkg/authorize"
	"github.com/altafiscal/go-afip/pkg/fiscal"
	"github.com/altafiscal/go-afip/pkg/soap"
	"github.com/altafiscal/go-afip/pkg/wsaa"
)

// ServiceName is the WSAA service identifier for WSFEv1.
const ServiceName = "wsfe"

// AFIP does not document its duplicate-submission codes as stable, so
// they are configuration with these defaults. 10016 is the documented
// "already authorized" observation; 702/703 appear on resubmission of a
// consumed number.
var DefaultDuplicateCodes = []int{10016, 702, 703}

// DefaultNotFoundCodes marks "no document under that number" on consult.
var DefaultNotFoundCodes = []int{602}

// Config holds WSFEv1 binding configuration
type Config struct {
	// Endpoint is the service URL
	Endpoint string

	// CUIT is the issuing taxpayer's tax ID, sent with every call
	CUIT int64

	// DuplicateCodes overrides DefaultDuplicateCodes
	DuplicateCodes []int

	// NotFoundCodes overrides DefaultNotFoundCodes
	NotFoundCodes []int

	// SOAP defaults to a client with a 30s timeout
	SOAP *soap.Client

	// Logger defaults to a discard logger
	Logger *slog.Logger
}

// Binding implements authorize.Binding for WSFEv1.
type Binding struct {
	endpoint  string
	cuit      int64
	duplicate map[int]bool
	notFound  map[int]bool
	soap      *soap.Client
	logger    *slog.Logger
}

var _ authorize.Binding = (*Binding)(nil)

// NewBinding creates a WSFEv1 binding.
func NewBinding(config *Config) (*Binding, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.CUIT == 0 {
		return nil, fmt.Errorf("cuit is required")
	}

	duplicate := config.DuplicateCodes
	if duplicate == nil {
		duplicate = DefaultDuplicateCodes
	}
	notFound := config.NotFoundCodes
	if notFound == nil {
		notFound = DefaultNotFoundCodes
	}

	soapClient := config.SOAP
	if soapClient == nil {
		soapClient = soap.NewClient(nil)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Binding{
		endpoint:  config.Endpoint,
		cuit:      config.CUIT,
		duplicate: codeSet(duplicate),
		notFound:  codeSet(notFound),
		soap:      soapClient,
		logger:    logger,
	}, nil
}

func codeSet(codes []int) map[int]bool {
	set := make(map[int]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

func (b *Binding) auth(ticket *wsaa.Ticket) feAuth {
	return feAuth{Token: ticket.Token, Sign: ticket.Sign, Cuit: b.cuit}
}

// Authorize submits doc via FECAESolicitar and classifies the answer.
func (b *Binding) Authorize(ctx context.Context, doc *fiscal.Document, ticket *wsaa.Ticket) (*authorize.Outcome, error) {
	req := &feCAESolicitar{Auth: b.auth(ticket)}
	req.Req.Header = feCabReq{
		CantReg:  1,
		PtoVta:   doc.Key.PointOfSale,
		CbteTipo: doc.Key.Type,
	}
	req.Req.Detail.Items = []feDetReq{toDetRequest(doc)}

	var resp feCAESolicitarResponse
	if err := b.soap.Call(ctx, b.endpoint, serviceNS+"FECAESolicitar", req, &resp); err != nil {
		return nil, err
	}

	return b.classify(doc, &resp.Result), nil
}

// classify turns a FECAESolicitar result into an Outcome. Duplicate
// codes may arrive either as service-level errors or as observations on
// a rejected detail line; both route to reprocessing.
func (b *Binding) classify(doc *fiscal.Document, result *feCAEResult) *authorize.Outcome {
	for _, e := range result.Errors {
		if b.duplicate[e.Code] {
			return authorize.DuplicateDetected(doc.Key)
		}
	}

	if len(result.Detail.Items) > 0 {
		det := result.Detail.Items[0]
		for _, o := range det.Observaciones {
			if b.duplicate[o.Code] {
				return authorize.DuplicateDetected(doc.Key)
			}
		}
		if det.Resultado != "" {
			res := &fiscal.AuthorizationResult{
				Status:         statusFromResultado(det.Resultado, len(det.Observaciones) > 0),
				Code:           det.CAE,
				ExpirationDate: det.CAEFchVto,
				Observations:   toEvents(det.Observaciones),
				Errors:         toEvents(result.Errors),
			}
			return authorize.Authorized(res)
		}
	}

	return authorize.Failed(&authorize.ServiceError{Events: toEvents(result.Errors)})
}

// Consult fetches the document registered under key via FECompConsultar.
func (b *Binding) Consult(ctx context.Context, key fiscal.DocumentKey, ticket *wsaa.Ticket) (*fiscal.Document, *fiscal.AuthorizationResult, error) {
	req := &feCompConsultar{Auth: b.auth(ticket)}
	req.Req.CbteTipo = key.Type
	req.Req.PtoVta = key.PointOfSale
	req.Req.CbteNro = key.Number

	var resp feCompConsultarResponse
	if err := b.soap.Call(ctx, b.endpoint, serviceNS+"FECompConsultar", req, &resp); err != nil {
		return nil, nil, err
	}

	for _, e := range resp.Result.Errors {
		if b.notFound[e.Code] {
			return nil, nil, fmt.Errorf("%d %s: %w", e.Code, e.Msg, authorize.ErrDocumentNotFound)
		}
	}
	if resp.Result.ResultGet == nil {
		if len(resp.Result.Errors) > 0 {
			return nil, nil, &authorize.ServiceError{Events: toEvents(resp.Result.Errors)}
		}
		return nil, nil, authorize.ErrDocumentNotFound
	}

	doc, result := fromCompDetail(resp.Result.ResultGet)
	return doc, result, nil
}
