package fiscal

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Discrepancy records one field that differs between the local document
// and the remote copy registered under the same key.
type Discrepancy struct {
	Field  string
	Local  string
	Remote string
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: local=%s remote=%s", d.Field, d.Local, d.Remote)
}

// Compare checks every economically significant field of local against
// remote and returns all differences. Amounts compare by decimal value,
// so "100.0" and "100.00" are equal; collections compare element by
// element in order.
//
// An empty result means the remote document is the same logical document
// and its authorization code can be adopted.
func Compare(local, remote *Document) []Discrepancy {
	var diffs []Discrepancy

	c := &comparer{diffs: &diffs}

	c.intField("documentType", local.Key.Type, remote.Key.Type)
	c.intField("pointOfSale", local.Key.PointOfSale, remote.Key.PointOfSale)
	c.int64Field("number", local.Key.Number, remote.Key.Number)
	c.intField("concept", local.Concept, remote.Concept)
	c.intField("customerDocType", local.CustomerDocType, remote.CustomerDocType)
	c.int64Field("customerDocNumber", local.CustomerDocNumber, remote.CustomerDocNumber)
	c.strField("issueDate", local.IssueDate, remote.IssueDate)
	c.strField("serviceFrom", local.ServiceFrom, remote.ServiceFrom)
	c.strField("serviceTo", local.ServiceTo, remote.ServiceTo)
	c.strField("paymentDueDate", local.PaymentDueDate, remote.PaymentDueDate)
	c.strField("currency", local.Currency, remote.Currency)
	c.decField("exchangeRate", local.ExchangeRate, remote.ExchangeRate)
	c.decField("total", local.Total, remote.Total)
	c.decField("netTaxed", local.NetTaxed, remote.NetTaxed)
	c.decField("netUntaxed", local.NetUntaxed, remote.NetUntaxed)
	c.decField("netExempt", local.NetExempt, remote.NetExempt)
	c.decField("vatAmount", local.VATAmount, remote.VATAmount)
	c.decField("otherTaxAmount", local.OtherTaxAmount, remote.OtherTaxAmount)

	c.vatEntries(local.VAT, remote.VAT)
	c.taxEntries(local.Taxes, remote.Taxes)
	c.associated(local.Associated, remote.Associated)
	c.items(local.Items, remote.Items)

	return diffs
}

type comparer struct {
	diffs *[]Discrepancy
}

func (c *comparer) add(field, local, remote string) {
	*c.diffs = append(*c.diffs, Discrepancy{Field: field, Local: local, Remote: remote})
}

func (c *comparer) intField(field string, l, r int) {
	if l != r {
		c.add(field, strconv.Itoa(l), strconv.Itoa(r))
	}
}

func (c *comparer) int64Field(field string, l, r int64) {
	if l != r {
		c.add(field, strconv.FormatInt(l, 10), strconv.FormatInt(r, 10))
	}
}

func (c *comparer) strField(field, l, r string) {
	if l != r {
		c.add(field, l, r)
	}
}

func (c *comparer) decField(field string, l, r decimal.Decimal) {
	if !l.Equal(r) {
		c.add(field, l.String(), r.String())
	}
}

func (c *comparer) vatEntries(l, r []VATEntry) {
	if len(l) != len(r) {
		c.add("vat.count", strconv.Itoa(len(l)), strconv.Itoa(len(r)))
		return
	}
	for i := range l {
		prefix := fmt.Sprintf("vat[%d].", i)
		c.intField(prefix+"id", l[i].ID, r[i].ID)
		c.decField(prefix+"base", l[i].Base, r[i].Base)
		c.decField(prefix+"amount", l[i].Amount, r[i].Amount)
	}
}

func (c *comparer) taxEntries(l, r []TaxEntry) {
	if len(l) != len(r) {
		c.add("taxes.count", strconv.Itoa(len(l)), strconv.Itoa(len(r)))
		return
	}
	for i := range l {
		prefix := fmt.Sprintf("taxes[%d].", i)
		c.intField(prefix+"id", l[i].ID, r[i].ID)
		c.decField(prefix+"base", l[i].Base, r[i].Base)
		c.decField(prefix+"rate", l[i].Rate, r[i].Rate)
		c.decField(prefix+"amount", l[i].Amount, r[i].Amount)
	}
}

func (c *comparer) associated(l, r []AssociatedDocument) {
	if len(l) != len(r) {
		c.add("associated.count", strconv.Itoa(len(l)), strconv.Itoa(len(r)))
		return
	}
	for i := range l {
		prefix := fmt.Sprintf("associated[%d].", i)
		c.intField(prefix+"type", l[i].Type, r[i].Type)
		c.intField(prefix+"pointOfSale", l[i].PointOfSale, r[i].PointOfSale)
		c.int64Field(prefix+"number", l[i].Number, r[i].Number)
	}
}

func (c *comparer) items(l, r []LineItem) {
	if len(l) != len(r) {
		c.add("items.count", strconv.Itoa(len(l)), strconv.Itoa(len(r)))
		return
	}
	for i := range l {
		prefix := fmt.Sprintf("items[%d].", i)
		c.strField(prefix+"code", l[i].Code, r[i].Code)
		c.strField(prefix+"description", l[i].Description, r[i].Description)
		c.decField(prefix+"quantity", l[i].Quantity, r[i].Quantity)
		c.decField(prefix+"unitPrice", l[i].UnitPrice, r[i].UnitPrice)
		c.decField(prefix+"amount", l[i].Amount, r[i].Amount)
	}
}
