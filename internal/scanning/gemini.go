package scanning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Asking for JSON directly avoids markdown fences most of the time;
	// parse.go still handles fenced output from older models.
	model.ResponseMIMEType = "application/json"

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractInvoice analyzes an invoice image and extracts its fields
func (g *Gemini) ExtractInvoice(imageData []byte, contentType string, mode Mode) (*InvoiceData, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, "", err
	}

	// genai.ImageData expects just the format suffix (e.g., "png"), not the
	// full MIME type. After prepareImageData, everything is PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(extractionPrompt(mode)),
	}

	text, err := g.generate(ctx, parts)
	if err != nil {
		return nil, "", err
	}

	data, err := parseInvoiceJSON(text)
	if err != nil {
		return nil, "", fmt.Errorf("parsing invoice data: %w", err)
	}

	return data, text, nil
}

// DetectAnomalies scans the approved batch for suspicious entries
func (g *Gemini) DetectAnomalies(records []BatchRecord, mode Mode) ([]Anomaly, error) {
	if len(records) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling batch records: %w", err)
	}

	parts := []genai.Part{
		genai.Text(anomalyPrompt(mode, time.Now().Format("2006-01-02"))),
		genai.Text(string(payload)),
	}

	text, err := g.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	anomalies, err := parseAnomalyJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing anomaly data: %w", err)
	}

	return anomalies, nil
}

// generate runs one model call and collects the text parts of the response
func (g *Gemini) generate(ctx context.Context, parts []genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return strings.TrimSpace(responseText.String()), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
