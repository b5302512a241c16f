// Package fiscal defines the typed model of a fiscal document (invoice
// or related voucher) and the exact comparison the reprocessing flow
// depends on.
//
// Monetary amounts are decimal values, never floats: the whole point of
// the typed model is that two renditions of the same document compare
// equal field by field.
package fiscal

import "github.com/shopspring/decimal"

// DocumentKey identifies a document within a service: document type,
// point of sale and sequence number. This is the key used to consult a
// previously submitted document; the authorization code is not known
// locally at that point.
type DocumentKey struct {
	Type        int
	PointOfSale int
	Number      int64
}

// Document is one fiscal document to authorize. It is built by the
// caller and treated as immutable once submitted: any resubmission must
// carry exactly the same values.
//
// Dates use AFIP's yyyymmdd layout.
type Document struct {
	Key DocumentKey

	// Concept: 1 products, 2 services, 3 both
	Concept int

	CustomerDocType   int
	CustomerDocNumber int64

	IssueDate string

	// Service period and payment due, required for concepts 2 and 3
	ServiceFrom    string
	ServiceTo      string
	PaymentDueDate string

	Currency     string
	ExchangeRate decimal.Decimal

	Total          decimal.Decimal
	NetTaxed       decimal.Decimal
	NetUntaxed     decimal.Decimal
	NetExempt      decimal.Decimal
	VATAmount      decimal.Decimal
	OtherTaxAmount decimal.Decimal

	VAT        []VATEntry
	Taxes      []TaxEntry
	Associated []AssociatedDocument
	Items      []LineItem
}

// VATEntry is one line of the VAT breakdown.
type VATEntry struct {
	ID     int
	Base   decimal.Decimal
	Amount decimal.Decimal
}

// TaxEntry is one non-VAT tax line.
type TaxEntry struct {
	ID          int
	Description string
	Base        decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// AssociatedDocument references a related voucher (e.g. the invoice a
// credit note corrects).
type AssociatedDocument struct {
	Type        int
	PointOfSale int
	Number      int64
}

// LineItem is one detail line, used by services that carry item detail.
type LineItem struct {
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Status is the outcome of an authorization request.
type Status string

const (
	// StatusApproved: the service issued an authorization code
	StatusApproved Status = "approved"
	// StatusObserved: approved with observations attached
	StatusObserved Status = "observed"
	// StatusRejected: the service refused the document
	StatusRejected Status = "rejected"
	// StatusReprocessed: a previously issued code was recovered after an
	// exact match against the remote copy
	StatusReprocessed Status = "reprocessed"
)

// Event is a coded message attached to a result (observation or error).
type Event struct {
	Code    int
	Message string
}

// AuthorizationResult is the outcome of authorizing one document. For a
// given document key the Code is issued exactly once; later
// consultations return the same value.
type AuthorizationResult struct {
	Status         Status
	Code           string
	ExpirationDate string
	Observations   []Event
	Errors         []Event
}

// Authorized reports whether the result carries a usable code.
func (r *AuthorizationResult) Authorized() bool {
	switch r.Status {
	case StatusApproved, StatusObserved, StatusReprocessed:
		return r.Code != ""
	default:
		return false
	}
}
