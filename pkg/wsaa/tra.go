// Package wsaa implements the WSAA ticket lifecycle: building and
// signing access ticket requests (TRA), exchanging them for a ticket via
// the LoginCms operation, and caching tickets on disk so a valid ticket
// is never re-requested.
package wsaa

import (
	"strconv"
	"sync"
	"time"

	"github.com/beevik/etree"
)

// TRA is an unsigned access ticket request.
type TRA struct {
	UniqueID       int64
	GenerationTime time.Time
	ExpirationTime time.Time
	Service        string
}

// XML serializes the TRA in the layout WSAA expects.
func (t *TRA) XML() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")

	header := root.CreateElement("header")
	header.CreateElement("uniqueId").SetText(strconv.FormatInt(t.UniqueID, 10))
	header.CreateElement("generationTime").SetText(t.GenerationTime.Format(time.RFC3339))
	header.CreateElement("expirationTime").SetText(t.ExpirationTime.Format(time.RFC3339))

	root.CreateElement("service").SetText(t.Service)

	return doc.WriteToBytes()
}

// RequestBuilder creates TRAs with process-unique, monotonic IDs.
// WSAA rejects a uniqueId it has already seen, so two requests built in
// the same second must still differ.
type RequestBuilder struct {
	mu     sync.Mutex
	lastID int64
	now    func() time.Time
}

// NewRequestBuilder creates a RequestBuilder. now may be nil to use the
// wall clock.
func NewRequestBuilder(now func() time.Time) *RequestBuilder {
	if now == nil {
		now = time.Now
	}
	return &RequestBuilder{now: now}
}

// New builds a TRA for service valid from now-ttl until now+ttl.
func (b *RequestBuilder) New(service string, ttl time.Duration) *TRA {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	id := now.Unix()
	if id <= b.lastID {
		id = b.lastID + 1
	}
	b.lastID = id

	return &TRA{
		UniqueID:       id,
		GenerationTime: now.Add(-ttl),
		ExpirationTime: now.Add(ttl),
		Service:        service,
	}
}
