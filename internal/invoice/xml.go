package invoice

import (
	"encoding/xml"
	"fmt"

	"github.com/mholusa/flexi-ocr/internal/scanning"
)

// FlexiBee export constants. The element names and the code: prefix are the
// wire contract; the downstream accounting system rejects anything else.
const (
	winstromVersion  = "1.0"
	documentTypeCode = "code:FAKTURA"
	defaultCurrency  = "CZK"
	reducedVatRate   = "12.0"
	standardVatRate  = "21.0"
)

type winstromXML struct {
	XMLName  xml.Name     `xml:"winstrom"`
	Version  string       `xml:"version,attr"`
	Received []invoiceXML `xml:"faktura-prijata"`
	Issued   []invoiceXML `xml:"faktura-vydana"`
}

// invoiceXML mirrors the exact element order FlexiBee receives. Field order
// here is the emission order.
type invoiceXML struct {
	CisDosle     *string         `xml:"cisDosle"`
	Kod          *string         `xml:"kod"`
	VarSym       string          `xml:"varSym"`
	DatVyst      string          `xml:"datVyst"`
	DuzpPuv      string          `xml:"duzpPuv"`
	DatSplat     string          `xml:"datSplat"`
	NazFirmy     string          `xml:"nazFirmy,omitempty"`
	IC           string          `xml:"ic,omitempty"`
	DIC          string          `xml:"dic,omitempty"`
	Popis        string          `xml:"popis,omitempty"`
	SumOsv       string          `xml:"sumOsv"`
	SumZklSniz   string          `xml:"sumZklSniz"`
	SumDphSniz   string          `xml:"sumDphSniz"`
	SumCelkSniz  string          `xml:"sumCelkSniz"`
	SumZklZakl   string          `xml:"sumZklZakl"`
	SumDphZakl   string          `xml:"sumDphZakl"`
	SumCelkZakl  string          `xml:"sumCelkZakl"`
	SumZklCelkem string          `xml:"sumZklCelkem"`
	SumDphCelkem string          `xml:"sumDphCelkem"`
	SumCelkem    string          `xml:"sumCelkem"`
	Mena         string          `xml:"mena"`
	TypDokl      string          `xml:"typDokl"`
	Prilohy      *attachmentsXML `xml:"prilohy"`
	BezPolozek   string          `xml:"bezPolozek"`
	SzbDphSniz   string          `xml:"szbDphSniz"`
	SzbDphZakl   string          `xml:"szbDphZakl"`
}

type attachmentsXML struct {
	Priloha attachmentXML `xml:"priloha"`
}

type attachmentXML struct {
	NazSoub     string            `xml:"nazSoub"`
	ContentType string            `xml:"contentType"`
	Content     attachmentContent `xml:"content"`
}

type attachmentContent struct {
	Encoding string `xml:"encoding,attr"`
	Data     string `xml:",chardata"`
}

// ExportXML serializes the approved documents into FlexiBee import XML.
// Unapproved documents are filtered out here again regardless of what the
// caller passed in. The output is a pure function of the documents' current
// fields and the attachments flag: pretty-printed UTF-8 bytes, ready to be
// written out as a file. Zero approved documents produce a bare root.
func ExportXML(docs []*Document, mode scanning.Mode, includeAttachments bool) ([]byte, error) {
	root := winstromXML{Version: winstromVersion}

	for _, doc := range docs {
		if !doc.Approved() {
			continue
		}
		element := buildInvoiceXML(doc, mode, includeAttachments)
		if mode == scanning.ModeIssued {
			root.Issued = append(root.Issued, element)
		} else {
			root.Received = append(root.Received, element)
		}
	}

	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling export: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, []byte(xml.Header)...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// buildInvoiceXML renders one approved document. The defaulting here repeats
// what the normalizer already did on purpose: the exporter has to be correct
// for whatever mapping it is handed, normalized or not.
func buildInvoiceXML(doc *Document, mode scanning.Mode, includeAttachments bool) invoiceXML {
	var f Fields
	if doc.Fields() != nil {
		f = *doc.Fields()
	}

	element := invoiceXML{
		VarSym:   StripSpaces(f.VariableSymbol),
		DatVyst:  f.IssueDate,
		DatSplat: f.DueDate,
		NazFirmy: f.PartnerName,
		IC:       StripSpaces(f.PartnerICO),
		DIC:      StripSpaces(f.PartnerVatID),
		Popis:    f.Description,

		// Rounding has no bucket of its own in the schema; it is folded
		// into the tax-exempt total by convention.
		SumOsv: f.Base0.Add(f.Rounding).String(),

		SumZklSniz:  f.Base12.String(),
		SumDphSniz:  f.Vat12.String(),
		SumCelkSniz: f.Base12.Add(f.Vat12).String(),
		SumZklZakl:  f.Base21.String(),
		SumDphZakl:  f.Vat21.String(),
		SumCelkZakl: f.Base21.Add(f.Vat21).String(),

		// Grand totals go out as extracted, not recomputed from the
		// per-rate buckets.
		SumZklCelkem: f.TotalBase.String(),
		SumDphCelkem: f.TotalVat.String(),
		SumCelkem:    f.TotalAmount.String(),

		TypDokl:    documentTypeCode,
		BezPolozek: "true",
		SzbDphSniz: reducedVatRate,
		SzbDphZakl: standardVatRate,
	}

	// DUZP falls back to the issue date if the scan did not carry one.
	duzp := f.VatDate
	if duzp == "" {
		duzp = f.IssueDate
	}
	element.DuzpPuv = duzp

	// Received invoices carry the supplier's own number, reconciled against
	// the variable symbol as a fallback. Issued numbering is authoritative
	// and becomes the document code directly.
	if mode == scanning.ModeIssued {
		kod := StripSpaces(f.InvoiceNumber)
		element.Kod = &kod
	} else {
		cisDosle := StripSpaces(f.InvoiceNumber)
		if cisDosle == "" {
			cisDosle = StripSpaces(f.VariableSymbol)
		}
		element.CisDosle = &cisDosle
	}

	currency := f.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	element.Mena = "code:" + NormalizeCurrency(currency)

	if includeAttachments {
		element.Prilohy = &attachmentsXML{
			Priloha: attachmentXML{
				NazSoub:     doc.Name(),
				ContentType: doc.MimeType(),
				Content: attachmentContent{
					Encoding: "base64",
					Data:     doc.ImageBase64(),
				},
			},
		}
	}

	return element
}
