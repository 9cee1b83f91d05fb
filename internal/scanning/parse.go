package scanning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// invoiceSchemaJSON validates the shape of the model's extraction payload
// before it is committed anywhere. Values may be null; the zero defaults are
// applied during unmarshaling. Numbers are also accepted as strings because
// some models quote them.
const invoiceSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"invoice_number":  {"type": ["string", "number", "null"]},
		"variable_symbol": {"type": ["string", "number", "null"]},
		"description":     {"type": ["string", "null"]},
		"issue_date":      {"type": ["string", "null"]},
		"vat_date":        {"type": ["string", "null"]},
		"due_date":        {"type": ["string", "null"]},
		"partner_name":    {"type": ["string", "null"]},
		"partner_ico":     {"type": ["string", "number", "null"]},
		"partner_vat_id":  {"type": ["string", "null"]},
		"base_0":          {"type": ["number", "string", "null"]},
		"rounding":        {"type": ["number", "string", "null"]},
		"base_12":         {"type": ["number", "string", "null"]},
		"vat_12":          {"type": ["number", "string", "null"]},
		"base_21":         {"type": ["number", "string", "null"]},
		"vat_21":          {"type": ["number", "string", "null"]},
		"total_base":      {"type": ["number", "string", "null"]},
		"total_vat":       {"type": ["number", "string", "null"]},
		"total_amount":    {"type": ["number", "string", "null"]},
		"currency":        {"type": ["string", "null"]}
	}
}`

var invoiceSchema = jsonschema.MustCompileString("invoice.schema.json", invoiceSchemaJSON)

// extractJSON strips markdown fences and any surrounding prose, leaving just
// the JSON value between the outermost delimiters.
func extractJSON(text, open, close string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, open)
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON value found in response")
	}
	endIdx := strings.LastIndex(text, close)
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON value in response")
	}
	return text[startIdx : endIdx+1], nil
}

// identifierKeys are string fields that models occasionally return as bare
// numbers. They are coerced to strings before the typed unmarshal.
var identifierKeys = []string{"invoice_number", "variable_symbol", "partner_ico"}

// parseInvoiceJSON parses and validates the model's extraction response.
func parseInvoiceJSON(text string) (*InvoiceData, error) {
	raw, err := extractJSON(text, "{", "}")
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := invoiceSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("validating extraction payload: %w", err)
	}

	if m, ok := generic.(map[string]any); ok {
		for _, key := range identifierKeys {
			if num, ok := m[key].(float64); ok {
				m[key] = strconv.FormatFloat(num, 'f', -1, 64)
			}
		}
		coerced, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("re-encoding payload: %w", err)
		}
		raw = string(coerced)
	}

	var data InvoiceData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.InvoiceNumber = strings.TrimSpace(data.InvoiceNumber)
	data.Currency = strings.TrimSpace(data.Currency)

	return &data, nil
}

// parseAnomalyJSON parses the model's batch-check response. An empty list is
// a valid "no anomalies" answer.
func parseAnomalyJSON(text string) ([]Anomaly, error) {
	raw, err := extractJSON(text, "[", "]")
	if err != nil {
		return nil, err
	}

	var anomalies []Anomaly
	if err := json.Unmarshal([]byte(raw), &anomalies); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	return anomalies, nil
}
