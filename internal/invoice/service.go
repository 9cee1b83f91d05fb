package invoice

import (
	"fmt"
	"log/slog"

	"github.com/mholusa/flexi-ocr/internal/scanning"
)

// PaperScanner pulls pages from a physical scanner. Implementations degrade
// to no pages when scanning is unavailable.
type PaperScanner interface {
	Scan(company, profile string) []scanning.Page
}

// Service drives the document pipeline for one interactive session. It
// assumes a single caller at a time; bulk operations run document by
// document so an interrupted pass leaves every individual document in a
// consistent state.
type Service struct {
	collection *Collection
	extractor  scanning.Extractor
	paper      PaperScanner
	history    *History
}

// NewService creates a Service. The paper scanner and history store are
// optional; nil disables them.
func NewService(extractor scanning.Extractor, paper PaperScanner, history *History) *Service {
	return &Service{
		collection: NewCollection(),
		extractor:  extractor,
		paper:      paper,
		history:    history,
	}
}

// Documents returns all documents in insertion order.
func (s *Service) Documents() []*Document {
	return s.collection.All()
}

// Document returns one document by ID, or an error if it does not exist.
func (s *Service) Document(id string) (*Document, error) {
	doc := s.collection.Get(id)
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return doc, nil
}

// NextUnapproved returns the first document awaiting approval, or nil.
func (s *Service) NextUnapproved() *Document {
	return s.collection.NextUnapproved()
}

// IngestFile adds an uploaded file to the collection. PDFs are split into
// one document per page; files whose (page) names are already present are
// skipped. Returns the documents actually added.
func (s *Service) IngestFile(name string, data []byte, contentType string, mode scanning.Mode) ([]*Document, error) {
	var pages []scanning.Page
	if contentType == "application/pdf" {
		var err error
		pages, err = scanning.PDFPages(name, data)
		if err != nil {
			return nil, fmt.Errorf("splitting PDF: %w", err)
		}
	} else {
		pages = []scanning.Page{{Name: name, Content: data, ContentType: contentType}}
	}

	var added []*Document
	for _, page := range pages {
		if s.collection.HasName(page.Name) {
			continue
		}
		doc := NewDocument(page.Name, page.Content, page.ContentType, mode)
		s.collection.Add(doc)
		added = append(added, doc)
	}
	return added, nil
}

// IngestScan runs one paper-scanner pass and ingests the resulting pages.
// The company name is recorded in the history. An unavailable scanner adds
// nothing; that is not an error.
func (s *Service) IngestScan(company, profile string, mode scanning.Mode) []*Document {
	if s.history != nil {
		if err := s.history.Add(company); err != nil {
			slog.Warn("Failed to save company to history", "company", company, "error", err)
		}
	}

	if s.paper == nil {
		return nil
	}

	var added []*Document
	for _, page := range s.paper.Scan(company, profile) {
		if s.collection.HasName(page.Name) {
			continue
		}
		doc := NewDocument(page.Name, page.Content, page.ContentType, mode)
		s.collection.Add(doc)
		added = append(added, doc)
	}
	return added
}

// Extract runs one extraction call for the document. On failure the
// document keeps its pre-call state unchanged; no retry is attempted.
func (s *Service) Extract(id string) error {
	doc, err := s.Document(id)
	if err != nil {
		return err
	}

	data, raw, err := s.extractor.ExtractInvoice(doc.Content(), doc.MimeType(), doc.Mode())
	if err != nil {
		slog.Error("Failed to extract invoice",
			"document", doc.Name(),
			"mode", doc.Mode(),
			"error", err,
		)
		return fmt.Errorf("extracting invoice: %w", err)
	}

	doc.SetFields(FieldsFromExtraction(*data), raw)
	return nil
}

// ExtractAll extracts every document that has no data yet, one at a time.
// It stops at the first failure and reports how many documents it finished;
// progress made before the failure is kept.
func (s *Service) ExtractAll() (int, error) {
	processed := 0
	for _, doc := range s.collection.Unprocessed() {
		if err := s.Extract(doc.ID()); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// UpdateFields replaces a document's field mapping with human-corrected
// values. The whole mapping is replaced and normalized; the raw extraction
// response is kept for audit.
func (s *Service) UpdateFields(id string, f Fields) error {
	doc, err := s.Document(id)
	if err != nil {
		return err
	}
	doc.SetFields(f, doc.RawResponse())
	return nil
}

// Approve marks one document approved. A document without extracted data
// cannot be approved.
func (s *Service) Approve(id string) error {
	doc, err := s.Document(id)
	if err != nil {
		return err
	}
	if !doc.Approve() {
		return fmt.Errorf("document %s has no extracted data", id)
	}
	return nil
}

// Unapprove withdraws approval from one document.
func (s *Service) Unapprove(id string) error {
	doc, err := s.Document(id)
	if err != nil {
		return err
	}
	doc.Unapprove()
	return nil
}

// ApproveAll approves every document with extracted data and returns how
// many were approved. Documents without data are skipped.
func (s *Service) ApproveAll() int {
	approved := 0
	for _, doc := range s.collection.All() {
		if doc.Approve() {
			approved++
		}
	}
	return approved
}

// ClearDocument wipes one document's extracted data and derived state.
func (s *Service) ClearDocument(id string) error {
	doc, err := s.Document(id)
	if err != nil {
		return err
	}
	doc.Clear()
	return nil
}

// Remove deletes one document from the collection.
func (s *Service) Remove(id string) error {
	if _, err := s.Document(id); err != nil {
		return err
	}
	s.collection.Remove(id)
	return nil
}

// RemoveAll empties the collection.
func (s *Service) RemoveAll() {
	s.collection.Clear()
}

// Reorder rearranges the collection to the given ID order.
func (s *Service) Reorder(ids []string) {
	s.collection.Reorder(ids)
}

// CheckAnomalies batches the approved documents through the anomaly check
// and annotates the flagged ones. With nothing approved it returns without
// calling the model. IDs in the response that no longer exist in the
// collection are dropped. On failure no annotation is applied.
//
// Annotations from earlier runs stay on documents the new response does not
// mention; only re-extraction or clearing resets them.
func (s *Service) CheckAnomalies(mode scanning.Mode) ([]scanning.Anomaly, error) {
	approved := s.collection.Approved()
	if len(approved) == 0 {
		return nil, nil
	}

	records := make([]scanning.BatchRecord, 0, len(approved))
	for _, doc := range approved {
		records = append(records, doc.BatchRecord())
	}

	anomalies, err := s.extractor.DetectAnomalies(records, mode)
	if err != nil {
		return nil, fmt.Errorf("checking anomalies: %w", err)
	}

	applied := make([]scanning.Anomaly, 0, len(anomalies))
	for _, anomaly := range anomalies {
		doc := s.collection.Get(anomaly.ItemID)
		if doc == nil {
			// The document may have been removed between building the
			// batch and the response arriving.
			continue
		}
		doc.Annotate(anomaly.Reason)
		applied = append(applied, anomaly)
	}
	return applied, nil
}

// Export serializes the approved documents as FlexiBee XML.
func (s *Service) Export(mode scanning.Mode, includeAttachments bool) ([]byte, error) {
	return ExportXML(s.collection.Approved(), mode, includeAttachments)
}

// CompanyHistory returns the remembered company names, most recent first.
func (s *Service) CompanyHistory() []string {
	if s.history == nil {
		return nil
	}
	return s.history.List()
}
