package invoice

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mholusa/flexi-ocr/internal/scanning"
)

// Fields holds the values extracted from one invoice image. Empty strings
// mean the value was not found; monetary fields default to zero.
type Fields struct {
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

// FieldsFromExtraction maps the extraction payload onto domain fields.
func FieldsFromExtraction(d scanning.InvoiceData) Fields {
	return Fields{
		InvoiceNumber:  d.InvoiceNumber,
		VariableSymbol: d.VariableSymbol,
		Description:    d.Description,
		IssueDate:      d.IssueDate,
		VatDate:        d.VatDate,
		DueDate:        d.DueDate,
		PartnerName:    d.PartnerName,
		PartnerICO:     d.PartnerICO,
		PartnerVatID:   d.PartnerVatID,
		Base0:          d.Base0,
		Rounding:       d.Rounding,
		Base12:         d.Base12,
		Vat12:          d.Vat12,
		Base21:         d.Base21,
		Vat21:          d.Vat21,
		TotalBase:      d.TotalBase,
		TotalVat:       d.TotalVat,
		TotalAmount:    d.TotalAmount,
		Currency:       d.Currency,
	}
}

// Document is one scanned invoice page moving through the pipeline:
// ingested, extracted, approved, exported. Approval and anomaly state are
// derived from the extracted fields and only mutate through methods so the
// two cannot drift apart from the data they describe.
type Document struct {
	id        string
	name      string
	content   []byte
	mimeType  string
	mode      scanning.Mode
	createdAt time.Time

	fields   *Fields
	raw      string
	approved bool
	anomaly  string
}

// NewDocument creates a just-ingested Document with no extracted data.
func NewDocument(name string, content []byte, mimeType string, mode scanning.Mode) *Document {
	return &Document{
		id:        uuid.NewString(),
		name:      name,
		content:   content,
		mimeType:  mimeType,
		mode:      mode,
		createdAt: time.Now(),
	}
}

// ID returns the process-unique identifier, stable for the document's lifetime.
func (d *Document) ID() string { return d.id }

// Name returns the display name (original filename or derived page name).
func (d *Document) Name() string { return d.name }

// Content returns the raw image bytes.
func (d *Document) Content() []byte { return d.content }

// MimeType returns the image MIME type.
func (d *Document) MimeType() string { return d.mimeType }

// Mode returns the invoice class this document was ingested as.
func (d *Document) Mode() scanning.Mode { return d.mode }

// CreatedAt returns the ingestion timestamp.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// Fields returns the extracted field values, or nil before extraction.
func (d *Document) Fields() *Fields {
	if d.fields == nil {
		return nil
	}
	f := *d.fields
	return &f
}

// HasData reports whether the document has extracted fields.
func (d *Document) HasData() bool { return d.fields != nil }

// RawResponse returns the raw extraction response, kept for audit.
func (d *Document) RawResponse() string { return d.raw }

// Approved reports whether a human (or a bulk approve) confirmed the data.
func (d *Document) Approved() bool { return d.approved }

// Anomaly returns the annotation from the last batch check, if any.
func (d *Document) Anomaly() string { return d.anomaly }

// SetFields replaces the whole field mapping, normalizing it first, and
// records the raw response it came from. Partial updates are not possible;
// editing always goes through here with the complete mapping.
func (d *Document) SetFields(f Fields, raw string) {
	normalized := Normalize(f)
	d.fields = &normalized
	d.raw = raw
}

// Approve marks the document approved. Approving a document without
// extracted data is meaningless and is a no-op; the return value reports
// whether the document is approved afterwards.
func (d *Document) Approve() bool {
	if d.fields == nil {
		return false
	}
	d.approved = true
	return true
}

// Unapprove withdraws approval, e.g. before re-extraction.
func (d *Document) Unapprove() {
	d.approved = false
}

// Annotate attaches an anomaly reason, overwriting any previous one.
func (d *Document) Annotate(reason string) {
	d.anomaly = reason
}

// Clear wipes the extracted data and everything derived from it: approval,
// anomaly annotation and the raw response. The document returns to its
// just-ingested state and can be re-extracted.
func (d *Document) Clear() {
	d.fields = nil
	d.raw = ""
	d.approved = false
	d.anomaly = ""
}

// ImageBase64 returns the image content base64-encoded for embedding.
func (d *Document) ImageBase64() string {
	return base64.StdEncoding.EncodeToString(d.content)
}

// BatchRecord builds the simplified record sent to the anomaly check.
func (d *Document) BatchRecord() scanning.BatchRecord {
	rec := scanning.BatchRecord{ItemID: d.id}
	if d.fields != nil {
		rec.InvoiceNumber = d.fields.InvoiceNumber
		rec.VariableSymbol = d.fields.VariableSymbol
		rec.IssueDate = d.fields.IssueDate
		rec.VatDate = d.fields.VatDate
		rec.DueDate = d.fields.DueDate
		rec.PartnerICO = d.fields.PartnerICO
		rec.TotalAmount = d.fields.TotalAmount
		rec.Currency = d.fields.Currency
	}
	return rec
}
