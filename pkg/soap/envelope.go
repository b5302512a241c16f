package soap

import (
	"encoding/xml"
	"fmt"
)

// requestEnvelope wraps a marshaled operation element for sending
type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NS      string   `xml:"xmlns:soapenv,attr"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"soapenv:Body"`
}

// responseEnvelope captures the body of a response without committing
// to an operation type; Inner is decoded by the caller
type responseEnvelope struct {
	XMLName xml.Name
	Body    struct {
		Fault *Fault `xml:"Fault"`
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// Fault is a SOAP 1.1 fault returned by the remote service
type Fault struct {
	Code    string `xml:"faultcode"`
	Message string `xml:"faultstring"`
	Actor   string `xml:"faultactor"`
	Detail  string `xml:"detail"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Message)
}
