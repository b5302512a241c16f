// Package authorize implements the idempotent authorization flow: a
// document is submitted once, and a "number already processed" answer is
// recovered by consulting, verifying and adopting the previously issued
// authorization code.
package authorize

import (
	"context"
	"errors"

	"github.com/altafiscal/go-afip/pkg/fiscal"
	"github.com/altafiscal/go-afip/pkg/wsaa"
)

// ErrDocumentNotFound is returned by Binding.Consult when no document is
// registered under the requested key.
var ErrDocumentNotFound = errors.New("document not found remotely")

// Binding adapts one AFIP service (WSFEv1, WSMTXCA, ...) to the
// authorization flow. Implementations own the service's payload layout
// and its set of duplicate-submission error codes; the flow never
// inspects raw error strings.
type Binding interface {
	// Authorize submits doc and classifies the service's answer as an
	// Outcome. Transport and protocol failures are returned as errors.
	Authorize(ctx context.Context, doc *fiscal.Document, ticket *wsaa.Ticket) (*Outcome, error)

	// Consult fetches the document registered under key along with its
	// authorization result. Returns ErrDocumentNotFound when the service
	// has no document for key.
	Consult(ctx context.Context, key fiscal.DocumentKey, ticket *wsaa.Ticket) (*fiscal.Document, *fiscal.AuthorizationResult, error)
}

// Outcome is the classified answer to an authorization request. Exactly
// one field is set.
type Outcome struct {
	// Authorized carries the service's decision, including rejections
	Authorized *fiscal.AuthorizationResult

	// Duplicate is set when the service reported the sequence number as
	// already processed; the flow routes it to reprocessing
	Duplicate *fiscal.DocumentKey

	// Failed carries any other service-level error
	Failed *ServiceError
}

// Authorized builds an outcome carrying a service decision.
func Authorized(result *fiscal.AuthorizationResult) *Outcome {
	return &Outcome{Authorized: result}
}

// DuplicateDetected builds an outcome for an already-processed number.
func DuplicateDetected(key fiscal.DocumentKey) *Outcome {
	return &Outcome{Duplicate: &key}
}

// Failed builds an outcome for a non-duplicate service error.
func Failed(err *ServiceError) *Outcome {
	return &Outcome{Failed: err}
}
