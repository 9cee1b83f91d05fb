package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/mholusa/flexi-ocr/internal/scanning"
)

func multipartUpload(name, mode string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.WriteField("mode", mode)).To(Succeed())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		extractor *mockExtractor
		service   *Service
		server    *Server
	)

	BeforeEach(func() {
		extractor = &mockExtractor{
			extractData: &scanning.InvoiceData{
				InvoiceNumber: "2024-55",
				IssueDate:     "2024-03-01",
				TotalAmount:   decimal.NewFromInt(1210),
				Currency:      "CZK",
			},
			extractRaw: `{"invoice_number": "2024-55"}`,
		}
		service = NewService(extractor, nil, nil)
		server = NewServer(service)
	})

	upload := func(name string) documentView {
		body, contentType := multipartUpload(name, "prijata", []byte("img"))
		req := httptest.NewRequest("POST", "/api/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var views []documentView
		Expect(json.Unmarshal(rec.Body.Bytes(), &views)).To(Succeed())
		Expect(views).To(HaveLen(1))
		return views[0]
	}

	Describe("POST /api/documents", func() {
		It("ingests an uploaded image and reports it as new", func() {
			view := upload("faktura.jpg")
			Expect(view.Name).To(Equal("faktura.jpg"))
			Expect(view.MimeType).To(Equal("image/jpeg"))
			Expect(view.Status).To(Equal("new"))
			Expect(view.Fields).To(BeNil())
		})

		It("rejects an invalid mode", func() {
			body, contentType := multipartUpload("faktura.jpg", "neplatny", []byte("img"))
			req := httptest.NewRequest("POST", "/api/documents", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a request without a file", func() {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/api/documents", body)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/documents", func() {
		It("lists documents in upload order", func() {
			upload("a.jpg")
			upload("b.jpg")

			req := httptest.NewRequest("GET", "/api/documents", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var views []documentView
			Expect(json.Unmarshal(rec.Body.Bytes(), &views)).To(Succeed())
			Expect(views).To(HaveLen(2))
			Expect(views[0].Name).To(Equal("a.jpg"))
			Expect(views[1].Name).To(Equal("b.jpg"))
		})
	})

	Describe("GET /api/documents/{id}/image", func() {
		It("serves the raw image bytes", func() {
			view := upload("faktura.jpg")

			req := httptest.NewRequest("GET", "/api/documents/"+view.ID+"/image", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(rec.Body.Bytes()).To(Equal([]byte("img")))
		})

		It("404s for an unknown document", func() {
			req := httptest.NewRequest("GET", "/api/documents/nope/image", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /api/documents/{id}/extract", func() {
		It("extracts and returns the populated view", func() {
			view := upload("faktura.jpg")

			req := httptest.NewRequest("POST", "/api/documents/"+view.ID+"/extract", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var updated documentView
			Expect(json.Unmarshal(rec.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.Status).To(Equal("extracted"))
			Expect(updated.Fields).NotTo(BeNil())
			Expect(updated.Fields.InvoiceNumber).To(Equal("2024-55"))
		})

		It("returns 502 when the model call fails", func() {
			view := upload("faktura.jpg")
			extractor.extractErr = errors.New("model unavailable")

			req := httptest.NewRequest("POST", "/api/documents/"+view.ID+"/extract", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("POST /api/documents/{id}/fields", func() {
		It("replaces the fields with normalized edited values", func() {
			view := upload("faktura.jpg")
			extract(server, view.ID)

			payload := `{"invoice_number": "2024 56", "currency": "Kč"}`
			req := httptest.NewRequest("POST", "/api/documents/"+view.ID+"/fields", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var updated documentView
			Expect(json.Unmarshal(rec.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.Fields.InvoiceNumber).To(Equal("202456"))
			Expect(updated.Fields.Currency).To(Equal("CZK"))
		})
	})

	Describe("approval endpoints", func() {
		It("rejects approving a document without data", func() {
			view := upload("faktura.jpg")

			req := httptest.NewRequest("POST", "/api/documents/"+view.ID+"/approve", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("approves an extracted document", func() {
			view := upload("faktura.jpg")
			extract(server, view.ID)

			req := httptest.NewRequest("POST", "/api/documents/"+view.ID+"/approve", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			doc, err := service.Document(view.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Approved()).To(BeTrue())
		})

		It("bulk-approves and reports the count", func() {
			view := upload("faktura.jpg")
			upload("b.jpg")
			extract(server, view.ID)

			req := httptest.NewRequest("POST", "/api/approve", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"approved": 1}`))
		})
	})

	Describe("POST /api/documents/{id}/clear", func() {
		It("returns the document to its just-ingested state", func() {
			view := upload("faktura.jpg")
			extract(server, view.ID)

			req := httptest.NewRequest("POST", "/api/documents/"+view.ID+"/clear", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			doc, err := service.Document(view.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.HasData()).To(BeFalse())
		})
	})

	Describe("POST /api/anomalies", func() {
		It("returns an empty list when nothing is approved", func() {
			req := httptest.NewRequest("POST", "/api/anomalies?mode=prijata", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`[]`))
			Expect(extractor.anomalyCalls).To(Equal(0))
		})

		It("returns the applied anomalies", func() {
			view := upload("faktura.jpg")
			extract(server, view.ID)
			Expect(service.Approve(view.ID)).To(Succeed())
			extractor.anomalies = []scanning.Anomaly{
				{ItemID: view.ID, Reason: "duplicitní číslo faktury"},
			}

			req := httptest.NewRequest("POST", "/api/anomalies?mode=prijata", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var anomalies []scanning.Anomaly
			Expect(json.Unmarshal(rec.Body.Bytes(), &anomalies)).To(Succeed())
			Expect(anomalies).To(HaveLen(1))
			Expect(anomalies[0].ItemID).To(Equal(view.ID))
		})
	})

	Describe("GET /api/export", func() {
		It("serves the XML as a download", func() {
			view := upload("faktura.jpg")
			extract(server, view.ID)
			Expect(service.Approve(view.ID)).To(Succeed())

			req := httptest.NewRequest("GET", "/api/export?mode=prijata&attachments=false", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/xml; charset=utf-8"))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring(`faktury-prijata.xml`))
			Expect(rec.Body.String()).To(ContainSubstring("<cisDosle>2024-55</cisDosle>"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("prilohy"))
		})

		It("embeds attachments by default", func() {
			view := upload("faktura.jpg")
			extract(server, view.ID)
			Expect(service.Approve(view.ID)).To(Succeed())

			req := httptest.NewRequest("GET", "/api/export?mode=prijata", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("<prilohy>"))
		})
	})

	Describe("POST /api/documents/reorder", func() {
		It("moves the mentioned documents to the front", func() {
			upload("a.jpg")
			b := upload("b.jpg")

			payload := `{"ids": ["` + b.ID + `"]}`
			req := httptest.NewRequest("POST", "/api/documents/reorder", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var views []documentView
			Expect(json.Unmarshal(rec.Body.Bytes(), &views)).To(Succeed())
			Expect(views[0].Name).To(Equal("b.jpg"))
			Expect(views[1].Name).To(Equal("a.jpg"))
		})
	})

	Describe("DELETE /api/documents/{id}", func() {
		It("removes the document", func() {
			view := upload("faktura.jpg")

			req := httptest.NewRequest("DELETE", "/api/documents/"+view.ID, nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(service.Documents()).To(BeEmpty())
		})
	})

	Describe("GET /api/history", func() {
		It("returns an empty list without a history store", func() {
			req := httptest.NewRequest("GET", "/api/history", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`[]`))
		})
	})
})

func extract(server *Server, id string) {
	req := httptest.NewRequest("POST", "/api/documents/"+id+"/extract", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	Expect(rec.Code).To(Equal(http.StatusOK))
}
