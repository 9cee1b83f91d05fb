package scanning

import "github.com/shopspring/decimal"

// Mode selects which invoice class a document belongs to. It decides whether
// counterparty fields refer to the supplier or the customer and which anomaly
// heuristics the batch check applies.
type Mode string

const (
	// ModeReceived marks invoices received from suppliers.
	ModeReceived Mode = "prijata"
	// ModeIssued marks invoices issued to customers.
	ModeIssued Mode = "vydana"
)

// Valid reports whether the mode is one of the two known invoice classes.
func (m Mode) Valid() bool {
	return m == ModeReceived || m == ModeIssued
}

// PartnerLabel returns the textual role the counterparty fields refer to.
func (m Mode) PartnerLabel() string {
	if m == ModeIssued {
		return "customer"
	}
	return "supplier"
}

// InvoiceData is the field payload extracted from a single invoice image.
// Numeric fields default to zero and string fields to empty when the model
// could not find them on the page.
type InvoiceData struct {
	InvoiceNumber  string          `json:"invoice_number"`
	VariableSymbol string          `json:"variable_symbol"`
	Description    string          `json:"description"`
	IssueDate      string          `json:"issue_date"`
	VatDate        string          `json:"vat_date"`
	DueDate        string          `json:"due_date"`
	PartnerName    string          `json:"partner_name"`
	PartnerICO     string          `json:"partner_ico"`
	PartnerVatID   string          `json:"partner_vat_id"`
	Base0          decimal.Decimal `json:"base_0"`
	Rounding       decimal.Decimal `json:"rounding"`
	Base12         decimal.Decimal `json:"base_12"`
	Vat12          decimal.Decimal `json:"vat_12"`
	Base21         decimal.Decimal `json:"base_21"`
	Vat21          decimal.Decimal `json:"vat_21"`
	TotalBase      decimal.Decimal `json:"total_base"`
	TotalVat       decimal.Decimal `json:"total_vat"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
}

// BatchRecord is the simplified view of an approved document sent to the
// anomaly check. Images are never included.
type BatchRecord struct {
	ItemID         string          `json:"item_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	VariableSymbol string          `json:"variable_symbol"`
	IssueDate      string          `json:"issue_date"`
	VatDate        string          `json:"vat_date"`
	DueDate        string          `json:"due_date"`
	PartnerICO     string          `json:"partner_ico"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
}

// Anomaly is one flagged record from the batch check.
type Anomaly struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// Extractor defines the interface for vision-based invoice extraction.
type Extractor interface {
	// ExtractInvoice analyzes one invoice image and returns the extracted
	// fields along with the raw model response for auditing. A failure
	// leaves nothing committed; the caller keeps its previous state.
	ExtractInvoice(imageData []byte, contentType string, mode Mode) (*InvoiceData, string, error)

	// DetectAnomalies scans a batch of simplified records for suspicious
	// entries. An empty batch returns no anomalies without calling the
	// model.
	DetectAnomalies(records []BatchRecord, mode Mode) ([]Anomaly, error)

	// Close closes the extractor and releases resources.
	Close() error
}
