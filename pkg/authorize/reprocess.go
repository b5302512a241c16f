package authorize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/altafiscal/go-afip/pkg/fiscal"
	"github.com/altafiscal/go-afip/pkg/wsaa"
)

// ReprocessCoordinator recovers the authorization previously issued for
// a document the service reports as already processed.
//
// Recovery only succeeds when the remote copy matches the local document
// exactly. Data integrity wins over availability: a near-match still
// fails, because the remote code may belong to a different logical
// document that happens to share the sequence number.
type ReprocessCoordinator struct {
	binding Binding
	logger  *slog.Logger
}

// NewReprocessCoordinator creates a coordinator over binding. logger may
// be nil.
func NewReprocessCoordinator(binding Binding, logger *slog.Logger) *ReprocessCoordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ReprocessCoordinator{binding: binding, logger: logger}
}

// Recover consults the document registered under doc's key, compares it
// field by field against doc, and adopts the remote authorization code
// only on an exact match. The returned result has StatusReprocessed.
func (r *ReprocessCoordinator) Recover(ctx context.Context, doc *fiscal.Document, ticket *wsaa.Ticket) (*fiscal.AuthorizationResult, error) {
	remote, result, err := r.binding.Consult(ctx, doc.Key, ticket)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			// The duplicate report was wrong or the number was consumed by
			// a submission that never registered. Surface it hard.
			return nil, &ReprocessError{Key: doc.Key, NotFound: true, Err: err}
		}
		return nil, fmt.Errorf("consulting %d-%d-%d: %w",
			doc.Key.Type, doc.Key.PointOfSale, doc.Key.Number, err)
	}

	diffs := fiscal.Compare(doc, remote)
	if len(diffs) > 0 {
		r.logger.Error("reprocess mismatch: remote document differs from local submission",
			"type", doc.Key.Type, "pos", doc.Key.PointOfSale, "number", doc.Key.Number,
			"discrepancies", len(diffs))
		return nil, &ReprocessError{Key: doc.Key, Discrepancies: diffs}
	}

	if result == nil || !result.Authorized() {
		// The remote copy matches but was never authorized (e.g. a
		// rejected registration). There is no code to adopt.
		status := fiscal.Status("missing")
		if result != nil {
			status = result.Status
		}
		return nil, &ReprocessError{Key: doc.Key,
			Err: fmt.Errorf("remote document carries no authorization code (status %s)", status)}
	}

	r.logger.Info("recovered previous authorization",
		"type", doc.Key.Type, "pos", doc.Key.PointOfSale, "number", doc.Key.Number,
		"code", result.Code)

	recovered := *result
	recovered.Status = fiscal.StatusReprocessed
	return &recovered, nil
}
