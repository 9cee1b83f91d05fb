package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholusa/flexi-ocr/internal/scanning"
)

// documentView is the JSON shape of a document as the front-end sees it.
// Image bytes are served separately.
type documentView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	MimeType  string        `json:"mime_type"`
	Mode      scanning.Mode `json:"mode"`
	CreatedAt time.Time     `json:"created_at"`
	Status    string        `json:"status"`
	Approved  bool          `json:"approved"`
	Anomaly   string        `json:"anomaly,omitempty"`
	Fields    *Fields       `json:"fields,omitempty"`
}

func toView(d *Document) documentView {
	status := "new"
	switch {
	case d.Approved():
		status = "approved"
	case d.HasData():
		status = "extracted"
	}
	return documentView{
		ID:        d.ID(),
		Name:      d.Name(),
		MimeType:  d.MimeType(),
		Mode:      d.Mode(),
		CreatedAt: d.CreatedAt(),
		Status:    status,
		Approved:  d.Approved(),
		Anomaly:   d.Anomaly(),
		Fields:    d.Fields(),
	}
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// parseMode reads the invoice class from a request value, defaulting to
// received invoices like the original front-end does.
func parseMode(value string) (scanning.Mode, error) {
	if value == "" {
		return scanning.ModeReceived, nil
	}
	mode := scanning.Mode(value)
	if !mode.Valid() {
		return "", fmt.Errorf("invalid mode %q", value)
	}
	return mode, nil
}

// handleListDocuments returns all documents in order
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.service.Documents()
	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, toView(d))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleUploadDocument ingests an uploaded file, splitting PDFs into pages
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	// 50MB covers high-resolution phone photos and multi-page PDFs
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	mode, err := parseMode(r.FormValue("mode"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromName(header.Filename)
	}

	added, err := s.service.IngestFile(header.Filename, data, contentType, mode)
	if err != nil {
		slog.Error("Error ingesting file", "filename", header.Filename, "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	views := make([]documentView, 0, len(added))
	for _, d := range added {
		views = append(views, toView(d))
	}
	writeJSON(w, http.StatusCreated, views)
}

// contentTypeFromName guesses a MIME type from the file extension
func contentTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleGetDocument returns a single document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Document(r.PathValue("id"))
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toView(doc))
}

// handleGetDocumentImage returns the raw image for a document
func (s *Server) handleGetDocumentImage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Document(r.PathValue("id"))
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", doc.MimeType())
	w.Write(doc.Content())
}

// handleDeleteDocument removes a document from the collection
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Remove(r.PathValue("id")); err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllDocuments empties the collection
func (s *Server) handleDeleteAllDocuments(w http.ResponseWriter, r *http.Request) {
	s.service.RemoveAll()
	w.WriteHeader(http.StatusNoContent)
}

// handleExtractDocument runs extraction for one document
func (s *Server) handleExtractDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.Extract(id); err != nil {
		slog.Error("Error extracting document", "id", id, "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	doc, err := s.service.Document(id)
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toView(doc))
}

// handleExtractAll extracts every unprocessed document in order
func (s *Server) handleExtractAll(w http.ResponseWriter, r *http.Request) {
	processed, err := s.service.ExtractAll()
	if err != nil {
		slog.Error("Bulk extraction stopped", "processed", processed, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"processed": processed,
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"processed": processed})
}

// handleUpdateFields replaces a document's fields with edited values
func (s *Server) handleUpdateFields(w http.ResponseWriter, r *http.Request) {
	var fields Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	if err := s.service.UpdateFields(id, fields); err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	doc, _ := s.service.Document(id)
	writeJSON(w, http.StatusOK, toView(doc))
}

// handleApproveDocument approves one document
func (s *Server) handleApproveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Approve(r.PathValue("id")); err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnapproveDocument withdraws approval
func (s *Server) handleUnapproveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Unapprove(r.PathValue("id")); err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearDocument wipes a document's extracted data
func (s *Server) handleClearDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearDocument(r.PathValue("id")); err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderDocuments rearranges the collection to the given ID order
func (s *Server) handleReorderDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.service.Reorder(req.IDs)
	s.handleListDocuments(w, r)
}

// handleApproveAll approves every document that has extracted data
func (s *Server) handleApproveAll(w http.ResponseWriter, r *http.Request) {
	approved := s.service.ApproveAll()
	writeJSON(w, http.StatusOK, map[string]any{"approved": approved})
}

// handleCheckAnomalies runs the batch anomaly check over approved documents
func (s *Server) handleCheckAnomalies(w http.ResponseWriter, r *http.Request) {
	mode, err := parseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	anomalies, err := s.service.CheckAnomalies(mode)
	if err != nil {
		slog.Error("Error checking anomalies", "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	if anomalies == nil {
		anomalies = []scanning.Anomaly{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// handleExport serializes the approved documents as FlexiBee XML
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	mode, err := parseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeAttachments := r.URL.Query().Get("attachments") != "false"

	data, err := s.service.Export(mode, includeAttachments)
	if err != nil {
		slog.Error("Error exporting documents", "error", err)
		corsError(w, "Export failed", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="faktury-%s.xml"`, mode))
	w.Write(data)
}

// handleScan triggers one paper-scanner pass
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Company string        `json:"company"`
		Profile string        `json:"profile"`
		Mode    scanning.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	mode, err := parseMode(string(req.Mode))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Profile == "" {
		req.Profile = "flexibee"
	}

	added := s.service.IngestScan(req.Company, req.Profile, mode)
	views := make([]documentView, 0, len(added))
	for _, d := range added {
		views = append(views, toView(d))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleHistory returns the remembered company names
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	names := s.service.CompanyHistory()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}
