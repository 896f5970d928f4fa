package accounting

import "github.com/dropship/invoicer/internal/domain/integration"

// refResponse is the body of a reference entity lookup (item, class,
// term, customer).
type refResponse struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

func (r refResponse) toRef() integration.Ref {
	return integration.Ref{Value: r.ID, Name: r.Name}
}

// wireRef is the nested reference shape used inside invoice payloads.
type wireRef struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

func toWireRef(ref integration.Ref) wireRef {
	return wireRef{Value: ref.Value, Name: ref.Name}
}

type wireEmail struct {
	Address string `json:"Address"`
}

type wireAddress struct {
	Line1                  string `json:"Line1,omitempty"`
	City                   string `json:"City,omitempty"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty"`
	Country                string `json:"Country,omitempty"`
	PostalCode             string `json:"PostalCode,omitempty"`
}

type wireLineDetail struct {
	UnitPrice   float64 `json:"UnitPrice"`
	Qty         float64 `json:"Qty"`
	ServiceDate string  `json:"ServiceDate,omitempty"`
	ItemRef     wireRef `json:"ItemRef"`
	ClassRef    wireRef `json:"ClassRef"`
}

type wireLine struct {
	Description         string         `json:"Description"`
	Amount              float64        `json:"Amount"`
	DetailType          string         `json:"DetailType"`
	SalesItemLineDetail wireLineDetail `json:"SalesItemLineDetail"`
}

// wireInvoice is the invoice payload shape, shared by creation requests
// and lookup responses.
type wireInvoice struct {
	ID           string       `json:"Id,omitempty"`
	DocNumber    string       `json:"DocNumber"`
	TotalAmt     float64      `json:"TotalAmt,omitempty"`
	TxnDate      string       `json:"TxnDate,omitempty"`
	ShipDate     string       `json:"ShipDate,omitempty"`
	TrackingNum  string       `json:"TrackingNum,omitempty"`
	CustomerRef  wireRef      `json:"CustomerRef"`
	SalesTermRef *wireRef     `json:"SalesTermRef,omitempty"`
	ShipMethod   *wireRef     `json:"ShipMethodRef,omitempty"`
	BillEmail    *wireEmail   `json:"BillEmail,omitempty"`
	ShipAddr     *wireAddress `json:"ShipAddr,omitempty"`
	Line         []wireLine   `json:"Line"`
}

// invoiceQueryResponse is the body of a document-number lookup. The
// match list is empty when no invoice carries the number.
type invoiceQueryResponse struct {
	Invoices []wireInvoice `json:"Invoices"`
}

func draftToWire(draft *integration.InvoiceDraft) wireInvoice {
	inv := wireInvoice{
		DocNumber:   draft.DocNumber,
		TxnDate:     draft.TxnDate,
		ShipDate:    draft.ShipDate,
		TrackingNum: draft.TrackingNumber,
		CustomerRef: toWireRef(draft.CustomerRef),
	}
	if draft.TermRef.Value != "" {
		ref := toWireRef(draft.TermRef)
		inv.SalesTermRef = &ref
	}
	if draft.ShipMethod.Value != "" {
		ref := toWireRef(draft.ShipMethod)
		inv.ShipMethod = &ref
	}
	if draft.BillEmail != "" {
		inv.BillEmail = &wireEmail{Address: draft.BillEmail}
	}
	if draft.ShipTo != (integration.ShipAddress{}) {
		inv.ShipAddr = &wireAddress{
			Line1:                  draft.ShipTo.Line1,
			City:                   draft.ShipTo.City,
			CountrySubDivisionCode: draft.ShipTo.State,
			Country:                draft.ShipTo.Country,
			PostalCode:             draft.ShipTo.PostalCode,
		}
	}
	for _, line := range draft.Lines {
		inv.Line = append(inv.Line, wireLine{
			Description: line.Description,
			Amount:      line.Amount,
			DetailType:  "SalesItemLineDetail",
			SalesItemLineDetail: wireLineDetail{
				UnitPrice:   line.UnitPrice,
				Qty:         line.Quantity,
				ServiceDate: line.ServiceDate,
				ItemRef:     toWireRef(line.ItemRef),
				ClassRef:    toWireRef(line.ClassRef),
			},
		})
	}
	return inv
}

func wireToInvoice(inv wireInvoice) *integration.Invoice {
	return &integration.Invoice{
		ID:        inv.ID,
		DocNumber: inv.DocNumber,
		Total:     inv.TotalAmt,
	}
}
