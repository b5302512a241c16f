package wsaa

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
)

// Ticket is the {token, sign} credential pair WSAA issues. It
// authenticates every subsequent fiscal web service call until
// ExpirationTime.
type Ticket struct {
	Token          string
	Sign           string
	ExpirationTime time.Time
}

// Expired reports whether the ticket's own expiration has passed.
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpirationTime)
}

// ParseTicket decodes a loginTicketResponse document.
func ParseTicket(data []byte) (*Ticket, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing ticket XML: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "loginTicketResponse" {
		return nil, fmt.Errorf("unexpected ticket root element")
	}

	token := root.FindElement("./credentials/token")
	sign := root.FindElement("./credentials/sign")
	exp := root.FindElement("./header/expirationTime")
	if token == nil || sign == nil || exp == nil {
		return nil, fmt.Errorf("ticket XML missing token, sign or expirationTime")
	}
	if token.Text() == "" || sign.Text() == "" {
		return nil, fmt.Errorf("ticket XML has empty credentials")
	}

	expTime, err := time.Parse(time.RFC3339, exp.Text())
	if err != nil {
		return nil, fmt.Errorf("parsing ticket expiration %q: %w", exp.Text(), err)
	}

	return &Ticket{
		Token:          token.Text(),
		Sign:           sign.Text(),
		ExpirationTime: expTime,
	}, nil
}

// XML serializes the ticket in the canonical cache layout.
func (t *Ticket) XML() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("loginTicketResponse")
	header := root.CreateElement("header")
	header.CreateElement("expirationTime").SetText(t.ExpirationTime.Format(time.RFC3339))

	creds := root.CreateElement("credentials")
	creds.CreateElement("token").SetText(t.Token)
	creds.CreateElement("sign").SetText(t.Sign)

	return doc.WriteToBytes()
}
