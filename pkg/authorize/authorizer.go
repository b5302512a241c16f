package authorize

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/altafiscal/go-afip/pkg/fiscal"
	"github.com/altafiscal/go-afip/pkg/wsaa"
)

// DocumentAuthorizer runs the authorization flow for one service
// binding. Per document the flow is strictly forward: submitted once,
// then terminal. A duplicate answer never resubmits; it goes through the
// ReprocessCoordinator, so a sequence number is consumed at most once.
type DocumentAuthorizer struct {
	binding     Binding
	coordinator *ReprocessCoordinator
	logger      *slog.Logger
}

// NewDocumentAuthorizer creates an authorizer for binding. logger may be
// nil.
func NewDocumentAuthorizer(binding Binding, logger *slog.Logger) *DocumentAuthorizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DocumentAuthorizer{
		binding:     binding,
		coordinator: NewReprocessCoordinator(binding, logger),
		logger:      logger,
	}
}

// Authorize submits doc and returns the service's decision.
//
// A duplicate-submission answer is recovered via reprocessing: the
// returned result then has StatusReprocessed and carries the code the
// service issued for the original submission. Any other service error is
// returned unwrapped for the caller to decide on.
func (a *DocumentAuthorizer) Authorize(ctx context.Context, doc *fiscal.Document, ticket *wsaa.Ticket) (*fiscal.AuthorizationResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket is required")
	}

	outcome, err := a.binding.Authorize(ctx, doc, ticket)
	if err != nil {
		return nil, fmt.Errorf("authorizing %d-%d-%d: %w",
			doc.Key.Type, doc.Key.PointOfSale, doc.Key.Number, err)
	}

	switch {
	case outcome.Authorized != nil:
		a.logger.Info("document authorized",
			"type", doc.Key.Type, "pos", doc.Key.PointOfSale, "number", doc.Key.Number,
			"status", outcome.Authorized.Status, "code", outcome.Authorized.Code)
		return outcome.Authorized, nil

	case outcome.Duplicate != nil:
		a.logger.Warn("duplicate submission reported, recovering previous authorization",
			"type", doc.Key.Type, "pos", doc.Key.PointOfSale, "number", doc.Key.Number)
		return a.coordinator.Recover(ctx, doc, ticket)

	case outcome.Failed != nil:
		return nil, outcome.Failed

	default:
		return nil, fmt.Errorf("binding returned an empty outcome")
	}
}
