package invoice

import "strings"

// The banking and accounting identifiers must not contain spaces when they
// reach FlexiBee; scans often carry regular or non-breaking spaces inside
// them.
var spaceStripper = strings.NewReplacer(" ", "", " ", "")

// StripSpaces removes regular and non-breaking spaces. Empty values pass
// through unchanged.
func StripSpaces(s string) string {
	if s == "" {
		return s
	}
	return spaceStripper.Replace(s)
}

// NormalizeCurrency rewrites the local-currency symbol or its two-letter
// abbreviation to the ISO code. Anything else, including an already
// normalized value, is returned as given, so the rewrite is idempotent.
func NormalizeCurrency(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KČ", "KC":
		return "CZK"
	}
	return s
}

// Normalize cleans a complete field mapping. It never fails: absent or
// malformed values degrade to defaults.
//
// The tax-point and due dates fall back to the issue date here, in one
// place, so a document that has data always has usable dates regardless of
// which path filled the mapping in.
func Normalize(f Fields) Fields {
	f.InvoiceNumber = StripSpaces(f.InvoiceNumber)
	f.VariableSymbol = StripSpaces(f.VariableSymbol)
	f.PartnerICO = StripSpaces(f.PartnerICO)
	f.PartnerVatID = StripSpaces(f.PartnerVatID)

	f.Currency = NormalizeCurrency(f.Currency)

	if f.VatDate == "" {
		f.VatDate = f.IssueDate
	}
	if f.DueDate == "" {
		f.DueDate = f.IssueDate
	}

	return f
}
