package dto

type CreateInvoiceRequest struct {
	Amount int `json:"amount"`
}

type CreateInvoiceResponse struct {
	Payload    string  `json:"payload"`
	InvoiceURL string  `json:"invoice_url"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
}

type PaymentStatusResponse struct {
	Payload string  `json:"payload"`
	Status  string  `json:"status"`
	Amount  float64 `json:"amount"`
}
