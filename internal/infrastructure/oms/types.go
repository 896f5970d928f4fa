package oms

// tokenResponse is the body returned by POST /token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// orderResponse mirrors the order management system's order payload,
// limited to the fields reconciliation needs.
type orderResponse struct {
	TotalInfo  totalInfo   `json:"TotalInfo"`
	OrderItems []orderItem `json:"OrderItems"`
}

type totalInfo struct {
	Tax           float64  `json:"Tax"`
	GrandTotal    float64  `json:"GrandTotal"`
	ShippingTotal *float64 `json:"ShippingTotal"`
}

type orderItem struct {
	ProductIDOriginal string  `json:"ProductIDOriginal"`
	LineTotal         float64 `json:"LineTotal"`
	Qty               int     `json:"Qty"`
}
