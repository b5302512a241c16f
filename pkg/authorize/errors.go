package authorize

import (
	"fmt"
	"strings"

	"github.com/altafiscal/go-afip/pkg/fiscal"
)

// ServiceError is a service-level failure during authorization that is
// not the duplicate-submission class. It is surfaced as-is; whether to
// retry is the caller's decision.
type ServiceError struct {
	Events []fiscal.Event
}

func (e *ServiceError) Error() string {
	if len(e.Events) == 0 {
		return "service error"
	}
	parts := make([]string, len(e.Events))
	for i, ev := range e.Events {
		parts[i] = fmt.Sprintf("%d: %s", ev.Code, ev.Message)
	}
	return "service error: " + strings.Join(parts, "; ")
}

// ReprocessError reports that a duplicate-submission answer could not be
// safely recovered: the document does not exist remotely (the original
// error was genuine), the remote copy differs from the local one, or the
// remote copy was never authorized. In every case no authorization code
// is returned: the remote code may belong to a different logical
// document sharing the number, or not exist at all.
type ReprocessError struct {
	Key           fiscal.DocumentKey
	NotFound      bool
	Discrepancies []fiscal.Discrepancy
	Err           error
}

func (e *ReprocessError) Error() string {
	switch {
	case e.NotFound:
		return fmt.Sprintf("reprocess %d-%d-%d: document not found remotely",
			e.Key.Type, e.Key.PointOfSale, e.Key.Number)
	case len(e.Discrepancies) > 0:
		fields := make([]string, len(e.Discrepancies))
		for i, d := range e.Discrepancies {
			fields[i] = d.String()
		}
		return fmt.Sprintf("reprocess %d-%d-%d: remote document differs: %s",
			e.Key.Type, e.Key.PointOfSale, e.Key.Number, strings.Join(fields, "; "))
	default:
		return fmt.Sprintf("reprocess %d-%d-%d: %v",
			e.Key.Type, e.Key.PointOfSale, e.Key.Number, e.Err)
	}
}

func (e *ReprocessError) Unwrap() error { return e.Err }
