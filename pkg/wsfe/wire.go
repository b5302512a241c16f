package wsfe

import (
	"encoding/xml"

	"github.com/shopspring/decimal"

	"github.com/altafiscal/go-afip/pkg/fiscal"
)

// Wire types for the FEV1 SOAP operations. Field names follow the
// service WSDL, not Go conventions.

const serviceNS = "http://ar.gov.afip.dif.FEV1/"

type feAuth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  int64  `xml:"Cuit"`
}

type feCAESolicitar struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECAESolicitar"`
	Auth    feAuth   `xml:"Auth"`
	Req     feCAEReq `xml:"FeCAEReq"`
}

type feCAEReq struct {
	Header feCabReq `xml:"FeCabReq"`
	Detail struct {
		Items []feDetReq `xml:"FECAEDetRequest"`
	} `xml:"FeDetReq"`
}

type feCabReq struct {
	CantReg  int `xml:"CantReg"`
	PtoVta   int `xml:"PtoVta"`
	CbteTipo int `xml:"CbteTipo"`
}

type feDetReq struct {
	Concepto   int    `xml:"Concepto"`
	DocTipo    int    `xml:"DocTipo"`
	DocNro     int64  `xml:"DocNro"`
	CbteDesde  int64  `xml:"CbteDesde"`
	CbteHasta  int64  `xml:"CbteHasta"`
	CbteFch    string `xml:"CbteFch"`
	ImpTotal   string `xml:"ImpTotal"`
	ImpTotConc string `xml:"ImpTotConc"`
	ImpNeto    string `xml:"ImpNeto"`
	ImpOpEx    string `xml:"ImpOpEx"`
	ImpTrib    string `xml:"ImpTrib"`
	ImpIVA     string `xml:"ImpIVA"`

	FchServDesde string `xml:"FchServDesde,omitempty"`
	FchServHasta string `xml:"FchServHasta,omitempty"`
	FchVtoPago   string `xml:"FchVtoPago,omitempty"`

	MonID    string `xml:"MonId"`
	MonCotiz string `xml:"MonCotiz"`

	CbtesAsoc *feCbtesAsoc `xml:"CbtesAsoc,omitempty"`
	Tributos  *feTributos  `xml:"Tributos,omitempty"`
	IVA       *feIVAs      `xml:"Iva,omitempty"`
}

type feCbtesAsoc struct {
	Items []feCbteAsoc `xml:"CbteAsoc"`
}

type feCbteAsoc struct {
	Tipo   int   `xml:"Tipo"`
	PtoVta int   `xml:"PtoVta"`
	Nro    int64 `xml:"Nro"`
}

type feTributos struct {
	Items []feTributo `xml:"Tributo"`
}

type feTributo struct {
	ID      int    `xml:"Id"`
	Desc    string `xml:"Desc"`
	BaseImp string `xml:"BaseImp"`
	Alic    string `xml:"Alic"`
	Importe string `xml:"Importe"`
}

type feIVAs struct {
	Items []feAlicIVA `xml:"AlicIva"`
}

type feAlicIVA struct {
	ID      int    `xml:"Id"`
	BaseImp string `xml:"BaseImp"`
	Importe string `xml:"Importe"`
}

type feCAESolicitarResponse struct {
	XMLName xml.Name    `xml:"FECAESolicitarResponse"`
	Result  feCAEResult `xml:"FECAESolicitarResult"`
}

type feCAEResult struct {
	Header struct {
		Resultado string `xml:"Resultado"`
	} `xml:"FeCabResp"`
	Detail struct {
		Items []feCAEDetResponse `xml:"FECAEDetResponse"`
	} `xml:"FeDetResp"`
	Events []feEvent `xml:"Events>Evt"`
	Errors []feEvent `xml:"Errors>Err"`
}

type feCAEDetResponse struct {
	CbteDesde     int64     `xml:"CbteDesde"`
	Resultado     string    `xml:"Resultado"`
	CAE           string    `xml:"CAE"`
	CAEFchVto     string    `xml:"CAEFchVto"`
	Observaciones []feEvent `xml:"Observaciones>Obs"`
}

type feEvent struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type feCompConsultar struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECompConsultar"`
	Auth    feAuth   `xml:"Auth"`
	Req     struct {
		CbteTipo int   `xml:"CbteTipo"`
		PtoVta   int   `xml:"PtoVta"`
		CbteNro  int64 `xml:"CbteNro"`
	} `xml:"FeCompConsReq"`
}

type feCompConsultarResponse struct {
	XMLName xml.Name `xml:"FECompConsultarResponse"`
	Result  struct {
		ResultGet *feCompDetail `xml:"ResultGet"`
		Errors    []feEvent     `xml:"Errors>Err"`
	} `xml:"FECompConsultarResult"`
}

type feCompDetail struct {
	Concepto   int    `xml:"Concepto"`
	DocTipo    int    `xml:"DocTipo"`
	DocNro     int64  `xml:"DocNro"`
	CbteDesde  int64  `xml:"CbteDesde"`
	CbteFch    string `xml:"CbteFch"`
	ImpTotal   string `xml:"ImpTotal"`
	ImpTotConc string `xml:"ImpTotConc"`
	ImpNeto    string `xml:"ImpNeto"`
	ImpOpEx    string `xml:"ImpOpEx"`
	ImpTrib    string `xml:"ImpTrib"`
	ImpIVA     string `xml:"ImpIVA"`

	FchServDesde string `xml:"FchServDesde"`
	FchServHasta string `xml:"FchServHasta"`
	FchVtoPago   string `xml:"FchVtoPago"`

	MonID    string `xml:"MonId"`
	MonCotiz string `xml:"MonCotiz"`

	CbteTipo int `xml:"CbteTipo"`
	PtoVta   int `xml:"PtoVta"`

	CbtesAsoc *feCbtesAsoc `xml:"CbtesAsoc"`
	Tributos  *feTributos  `xml:"Tributos"`
	IVA       *feIVAs      `xml:"Iva"`

	Resultado       string `xml:"Resultado"`
	CodAutorizacion string `xml:"CodAutorizacion"`
	FchVto          string `xml:"FchVto"`

	Observaciones []feEvent `xml:"Observaciones>Obs"`
}

// amount renders a decimal the way FEV1 expects monetary fields.
func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// rate renders a non-monetary decimal (exchange rates, tax rates)
// without forcing a scale.
func rate(d decimal.Decimal) string {
	return d.String()
}

// parseDec reads a wire decimal; empty fields read as zero.
func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// toDetRequest maps a fiscal document onto one FECAEDetRequest.
func toDetRequest(doc *fiscal.Document) feDetReq {
	det := feDetReq{
		Concepto:     doc.Concept,
		DocTipo:      doc.CustomerDocType,
		DocNro:       doc.CustomerDocNumber,
		CbteDesde:    doc.Key.Number,
		CbteHasta:    doc.Key.Number,
		CbteFch:      doc.IssueDate,
		ImpTotal:     amount(doc.Total),
		ImpTotConc:   amount(doc.NetUntaxed),
		ImpNeto:      amount(doc.NetTaxed),
		ImpOpEx:      amount(doc.NetExempt),
		ImpTrib:      amount(doc.OtherTaxAmount),
		ImpIVA:       amount(doc.VATAmount),
		FchServDesde: doc.ServiceFrom,
		FchServHasta: doc.ServiceTo,
		FchVtoPago:   doc.PaymentDueDate,
		MonID:        doc.Currency,
		MonCotiz:     rate(doc.ExchangeRate),
	}

	if len(doc.Associated) > 0 {
		det.CbtesAsoc = &feCbtesAsoc{}
		for _, a := range doc.Associated {
			det.CbtesAsoc.Items = append(det.CbtesAsoc.Items, feCbteAsoc{
				Tipo: a.Type, PtoVta: a.PointOfSale, Nro: a.Number,
			})
		}
	}
	if len(doc.Taxes) > 0 {
		det.Tributos = &feTributos{}
		for _, t := range doc.Taxes {
			det.Tributos.Items = append(det.Tributos.Items, feTributo{
				ID: t.ID, Desc: t.Description,
				BaseImp: amount(t.Base), Alic: rate(t.Rate), Importe: amount(t.Amount),
			})
		}
	}
	if len(doc.VAT) > 0 {
		det.IVA = &feIVAs{}
		for _, v := range doc.VAT {
			det.IVA.Items = append(det.IVA.Items, feAlicIVA{
				ID: v.ID, BaseImp: amount(v.Base), Importe: amount(v.Amount),
			})
		}
	}
	return det
}

// fromCompDetail maps a consulted document back into the fiscal model.
func fromCompDetail(det *feCompDetail) (*fiscal.Document, *fiscal.AuthorizationResult) {
	doc := &fiscal.Document{
		Key: fiscal.DocumentKey{
			Type:        det.CbteTipo,
			PointOfSale: det.PtoVta,
			Number:      det.CbteDesde,
		},
		Concept:           det.Concepto,
		CustomerDocType:   det.DocTipo,
		CustomerDocNumber: det.DocNro,
		IssueDate:         det.CbteFch,
		ServiceFrom:       det.FchServDesde,
		ServiceTo:         det.FchServHasta,
		PaymentDueDate:    det.FchVtoPago,
		Currency:          det.MonID,
		ExchangeRate:      parseDec(det.MonCotiz),
		Total:             parseDec(det.ImpTotal),
		NetTaxed:          parseDec(det.ImpNeto),
		NetUntaxed:        parseDec(det.ImpTotConc),
		NetExempt:         parseDec(det.ImpOpEx),
		VATAmount:         parseDec(det.ImpIVA),
		OtherTaxAmount:    parseDec(det.ImpTrib),
	}

	if det.CbtesAsoc != nil {
		for _, a := range det.CbtesAsoc.Items {
			doc.Associated = append(doc.Associated, fiscal.AssociatedDocument{
				Type: a.Tipo, PointOfSale: a.PtoVta, Number: a.Nro,
			})
		}
	}
	if det.Tributos != nil {
		for _, t := range det.Tributos.Items {
			doc.Taxes = append(doc.Taxes, fiscal.TaxEntry{
				ID: t.ID, Description: t.Desc,
				Base: parseDec(t.BaseImp), Rate: parseDec(t.Alic), Amount: parseDec(t.Importe),
			})
		}
	}
	if det.IVA != nil {
		for _, v := range det.IVA.Items {
			doc.VAT = append(doc.VAT, fiscal.VATEntry{
				ID: v.ID, Base: parseDec(v.BaseImp), Amount: parseDec(v.Importe),
			})
		}
	}

	result := &fiscal.AuthorizationResult{
		Status:         statusFromResultado(det.Resultado, len(det.Observaciones) > 0),
		Code:           det.CodAutorizacion,
		ExpirationDate: det.FchVto,
		Observations:   toEvents(det.Observaciones),
	}
	return doc, result
}

func statusFromResultado(resultado string, observed bool) fiscal.Status {
	switch resultado {
	case "A":
		if observed {
			return fiscal.StatusObserved
		}
		return fiscal.StatusApproved
	case "R":
		return fiscal.StatusRejected
	default:
		return fiscal.StatusRejected
	}
}

func toEvents(in []feEvent) []fiscal.Event {
	if len(in) == 0 {
		return nil
	}
	out := make([]fiscal.Event, len(in))
	for i, e := range in {
		out[i] = fiscal.Event{Code: e.Code, Message: e.Msg}
	}
	return out
}
