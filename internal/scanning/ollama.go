package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama implements the Extractor interface against a local Ollama server,
// for running the pipeline without a cloud API key.
//
// Recommended vision models (in order of recommendation):
//   - llava:1.6 (best balance of accuracy and speed)
//   - qwen2-vl:7b (good OCR capabilities)
//   - llava-phi3 (smaller, faster, but less accurate)
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Extractor instance
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // Ollama can be slow, especially for vision models
		},
	}, nil
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ExtractInvoice analyzes an invoice image and extracts its fields
func (o *Ollama) ExtractInvoice(imageData []byte, contentType string, mode Mode) (*InvoiceData, string, error) {
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, "", err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading Czech and Slovak invoices. You must carefully read all text in images and extract accurate information.",
			},
			{
				Role:    "user",
				Content: extractionPrompt(mode),
				Images:  []string{base64.StdEncoding.EncodeToString(finalImageData)},
			},
		},
	}

	text, err := o.chat(reqBody)
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
func (o *Ollama) DetectAnomalies(records []BatchRecord, mode Mode) ([]Anomaly, error) {
	if len(records) == 0 {
		return nil, nil
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling batch records: %w", err)
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "user",
				Content: anomalyPrompt(mode, time.Now().Format("2006-01-02")) + "\n\n" + string(payload),
			},
		},
	}

	text, err := o.chat(reqBody)
	if err != nil {
		return nil, err
	}

	anomalies, err := parseAnomalyJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing anomaly data: %w", err)
	}

	return anomalies, nil
}

// chat posts one chat request and returns the response text
func (o *Ollama) chat(reqBody ollamaChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
