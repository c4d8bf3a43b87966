package adapter

import (
	"context"
	"time"
)

// Operations is the contract a concrete POS integration implements. Each
// method performs the raw vendor call (HTTP, SDK) and nothing else: the
// Adapter owns caching, retries, circuit breaking and telemetry around it.
type Operations interface {
	DoSyncTransactions(ctx context.Context, since *time.Time) (SyncResult, error)
	DoSyncProducts(ctx context.Context, since *time.Time) (SyncResult, error)
	DoSyncCustomers(ctx context.Context, since *time.Time) (SyncResult, error)
	DoCalculateTax(ctx context.Context, req TaxRequest) (TaxResult, error)
	DoUpdateTransaction(ctx context.Context, update TransactionUpdate) error

	// ProcessWebhook handles an inbound webhook payload whose signature
	// has already been verified.
	ProcessWebhook(ctx context.Context, payload []byte) error
}

// SyncResult summarizes one sync pass against the vendor API.
type SyncResult struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// LineItem is a single item on a tax calculation request. Monetary amounts
// are in cents.
type LineItem struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	TaxCode   string `json:"tax_code,omitempty"`
}

type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type TaxRequest struct {
	Items             []LineItem `json:"items"`
	Address           Address    `json:"address"`
	CustomerTaxExempt bool       `json:"customer_tax_exempt"`
}

// TaxLine is one jurisdiction's share of the calculated tax.
type TaxLine struct {
	Jurisdiction string  `json:"jurisdiction"`
	Rate         float64 `json:"rate"`
	Amount       int64   `json:"amount"`
}

// TaxResult is the outcome of a tax calculation. Amounts are in cents.
type TaxResult struct {
	Subtotal  int64     `json:"subtotal"`
	TaxAmount int64     `json:"tax_amount"`
	Total     int64     `json:"total"`
	Breakdown []TaxLine `json:"breakdown,omitempty"`
}

// TransactionUpdate patches fields on a previously synced transaction.
type TransactionUpdate struct {
	TransactionID string         `json:"transaction_id"`
	Fields        map[string]any `json:"fields"`
}
