package scanning

import "fmt"

// extractionPrompt builds the field-extraction instruction for one invoice
// image. The counterparty role changes with the invoice class: received
// invoices name their supplier, issued invoices name their customer.
func extractionPrompt(mode Mode) string {
	label := mode.PartnerLabel()
	return fmt.Sprintf(`Extract the following information from this invoice image:
- invoice_number (string)
- variable_symbol (string)
- description (string - short summary of what the invoice is for, e.g., "Kancelářské potřeby", "Oprava dveří", max 50 characters)
- issue_date (YYYY-MM-DD)
- vat_date (YYYY-MM-DD - "Datum zdanitelného plnění" or DUZP. If not found, use null)
- due_date (YYYY-MM-DD)
- partner_name (string - the name of the %[1]s)
- partner_ico (string - the IČO/Registration number of the %[1]s)
- partner_vat_id (string - the DIČ/VAT ID of the %[1]s)
- base_0 (number - tax exempt amount)
- rounding (number - rounding amount)
- base_12 (number - tax base for 12%% VAT rate)
- vat_12 (number - VAT amount for 12%% VAT rate)
- base_21 (number - tax base for 21%% VAT rate)
- vat_21 (number - VAT amount for 21%% VAT rate)
- total_base (number - sum of all tax bases)
- total_vat (number - sum of all VAT amounts)
- total_amount (number - total including VAT)
- currency (string, ISO code e.g., CZK, EUR. Never use "Kč", always use "CZK" for Czech Koruna)

If a value is not found, return 0 for numeric fields and null for strings.
Return ONLY valid JSON.`, label)
}

// Issued invoices share one numbering sequence, received invoices do not.
// The anomaly instruction has to reflect that or the model flags perfectly
// normal per-supplier numbering as gaps.
const issuedAnomalyInstruction = `Toto jsou VYDANÉ faktury (všechny vystavila jedna firma).
Zaměř se na:
1. Číselné řady (invoice_number, variable_symbol) - hledej mezery v sekvenci, duplicity nebo podezřelé skoky.
2. Logiku dat (splatnost před vystavením, data v budoucnosti, DUZP vs vystavení).`

const receivedAnomalyInstruction = `Toto jsou PŘIJATÉ faktury od různých dodavatelů (partner_ico).
Zaměř se na:
1. Duplicity - stejné partner_ico + stejné číslo faktury/variabilní symbol.
2. Logiku dat (splatnost před vystavením, data v budoucnosti, extrémně dlouhá splatnost).
3. Nekonzistence v partner_ico (např. chybějící nebo podezřele krátké).
U přijatých faktur NEHLEDEJ číselné řady napříč celým seznamem, protože každý dodavatel má vlastní číslování.`

// anomalyPrompt builds the batch-check instruction. The current date is
// included so the model can reason about dates in the future.
func anomalyPrompt(mode Mode, currentDate string) string {
	instruction := receivedAnomalyInstruction
	if mode == ModeIssued {
		instruction = issuedAnomalyInstruction
	}
	return fmt.Sprintf(`Analyze the following list of invoices for anomalies and errors.
The current date is %s.

%s

Return a JSON list of objects, each containing:
- item_id: the ID of the suspicious invoice
- reason: short explanation in Czech (max 60 chars) why it is suspicious.

If no anomalies are found, return an empty list [].
Return ONLY valid JSON.`, currentDate, instruction)
}
