package authorize

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafiscal/go-afip/pkg/fiscal"
	"github.com/altafiscal/go-afip/pkg/wsaa"
)

// stubBinding scripts the service's answers for the flow under test.
type stubBinding struct {
	outcome      *Outcome
	authorizeErr error

	remoteDoc    *fiscal.Document
	remoteResult *fiscal.AuthorizationResult
	consultErr   error

	authorizeCalls int
	consultCalls   int
}

func (s *stubBinding) Authorize(ctx context.Context, doc *fiscal.Document, ticket *wsaa.Ticket) (*Outcome, error) {
	s.authorizeCalls++
	return s.outcome, s.authorizeErr
}

func (s *stubBinding) Consult(ctx context.Context, key fiscal.DocumentKey, ticket *wsaa.Ticket) (*fiscal.Document, *fiscal.AuthorizationResult, error) {
	s.consultCalls++
	if s.consultErr != nil {
		return nil, nil, s.consultErr
	}
	return s.remoteDoc, s.remoteResult, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testDocument() *fiscal.Document {
	return &fiscal.Document{
		Key:               fiscal.DocumentKey{Type: 1, PointOfSale: 4000, Number: 777},
		Concept:           1,
		CustomerDocType:   80,
		CustomerDocNumber: 30000000007,
		IssueDate:         "20250815",
		Currency:          "PES",
		ExchangeRate:      dec("1"),
		Total:             dec("121.00"),
		NetTaxed:          dec("100.00"),
		VATAmount:         dec("21.00"),
		VAT:               []fiscal.VATEntry{{ID: 5, Base: dec("100.00"), Amount: dec("21.00")}},
	}
}

func testTicket() *wsaa.Ticket {
	return &wsaa.Ticket{Token: "tok", Sign: "sig"}
}

func TestAuthorize_Approved(t *testing.T) {
	want := &fiscal.AuthorizationResult{
		Status:         fiscal.StatusApproved,
		Code:           "75123456789012",
		ExpirationDate: "20250825",
	}
	binding := &stubBinding{outcome: Authorized(want)}

	result, err := NewDocumentAuthorizer(binding, nil).Authorize(context.Background(), testDocument(), testTicket())
	require.NoError(t, err)

	assert.Equal(t, want, result)
	assert.Equal(t, 1, binding.authorizeCalls)
	assert.Zero(t, binding.consultCalls, "no consult for a clean authorization")
}

func TestAuthorize_RejectedIsAResultNotAnError(t *testing.T) {
	rejected := &fiscal.AuthorizationResult{
		Status: fiscal.StatusRejected,
		Errors: []fiscal.Event{{Code: 10015, Message: "invalid customer document"}},
	}
	binding := &stubBinding{outcome: Authorized(rejected)}

	result, err := NewDocumentAuthorizer(binding, nil).Authorize(context.Background(), testDocument(), testTicket())
	require.NoError(t, err)
	assert.Equal(t, fiscal.StatusRejected, result.Status)
	assert.Empty(t, result.Code)
}

func TestAuthorize_DuplicateRecovered(t *testing.T) {
	doc := testDocument()
	binding := &stubBinding{
		outcome:   DuplicateDetected(doc.Key),
		remoteDoc: testDocument(),
		remoteResult: &fiscal.AuthorizationResult{
			Status:         fiscal.StatusApproved,
			Code:           "75999999999999",
			ExpirationDate: "20250825",
		},
	}

	result, err := NewDocumentAuthorizer(binding, nil).Authorize(context.Background(), doc, testTicket())
	require.NoError(t, err)

	assert.Equal(t, fiscal.StatusReprocessed, result.Status)
	assert.Equal(t, "75999999999999", result.Code, "must adopt the previously issued code")
	assert.Equal(t, 1, binding.authorizeCalls, "the document is never resubmitted")
	assert.Equal(t, 1, binding.consultCalls)
}

func TestAuthorize_ServiceErrorSurfaced(t *testing.T) {
	svcErr := &ServiceError{Events: []fiscal.Event{{Code: 600, Message: "auth check failed"}}}
	binding := &stubBinding{outcome: Failed(svcErr)}

	_, err := NewDocumentAuthorizer(binding, nil).Authorize(context.Background(), testDocument(), testTicket())
	require.Error(t, err)

	var got *ServiceError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, svcErr.Events, got.Events)
	assert.Zero(t, binding.consultCalls, "non-duplicate errors never trigger reprocessing")
}

func TestAuthorize_TransportErrorWrapped(t *testing.T) {
	binding := &stubBinding{authorizeErr: fmt.Errorf("connection refused")}

	_, err := NewDocumentAuthorizer(binding, nil).Authorize(context.Background(), testDocument(), testTicket())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAuthorize_NilArguments(t *testing.T) {
	binding := &stubBinding{}
	authorizer := NewDocumentAuthorizer(binding, nil)

	_, err := authorizer.Authorize(context.Background(), nil, testTicket())
	assert.Error(t, err)

	_, err = authorizer.Authorize(context.Background(), testDocument(), nil)
	assert.Error(t, err)

	assert.Zero(t, binding.authorizeCalls)
}

func TestServiceError_Message(t *testing.T) {
	err := &ServiceError{Events: []fiscal.Event{
		{Code: 600, Message: "token invalid"},
		{Code: 601, Message: "sign invalid"},
	}}
	assert.Equal(t, "service error: 600: token invalid; 601: sign invalid", err.Error())
}

func TestReprocessError_Unwrap(t *testing.T) {
	inner := errors.New("602: no data")
	err := &ReprocessError{Key: fiscal.DocumentKey{Type: 1, PointOfSale: 1, Number: 1}, NotFound: true, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "not found remotely")
}
