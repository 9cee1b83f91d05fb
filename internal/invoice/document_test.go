package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/mholusa/flexi-ocr/internal/scanning"
)

var _ = Describe("Document", func() {
	var doc *Document

	BeforeEach(func() {
		doc = NewDocument("faktura.jpg", []byte("image-bytes"), "image/jpeg", scanning.ModeReceived)
	})

	Describe("NewDocument", func() {
		It("assigns a unique ID", func() {
			other := NewDocument("other.jpg", nil, "image/jpeg", scanning.ModeReceived)
			Expect(doc.ID()).NotTo(BeEmpty())
			Expect(doc.ID()).NotTo(Equal(other.ID()))
		})

		It("starts with no data, unapproved and unannotated", func() {
			Expect(doc.HasData()).To(BeFalse())
			Expect(doc.Approved()).To(BeFalse())
			Expect(doc.Anomaly()).To(BeEmpty())
		})
	})

	Describe("SetFields", func() {
		It("normalizes the mapping before storing it", func() {
			doc.SetFields(Fields{
				VariableSymbol: "24 0055",
				Currency:       "Kč",
				IssueDate:      "2024-03-01",
			}, `{"raw":"response"}`)

			fields := doc.Fields()
			Expect(fields.VariableSymbol).To(Equal("240055"))
			Expect(fields.Currency).To(Equal("CZK"))
			Expect(fields.VatDate).To(Equal("2024-03-01"))
			Expect(fields.DueDate).To(Equal("2024-03-01"))
		})

		It("keeps the raw response for audit", func() {
			doc.SetFields(Fields{IssueDate: "2024-03-01"}, `{"raw":"response"}`)
			Expect(doc.RawResponse()).To(Equal(`{"raw":"response"}`))
		})

		It("returns a copy so callers cannot mutate stored fields", func() {
			doc.SetFields(Fields{InvoiceNumber: "F100"}, "")
			doc.Fields().InvoiceNumber = "tampered"
			Expect(doc.Fields().InvoiceNumber).To(Equal("F100"))
		})
	})

	Describe("Approve", func() {
		When("the document has no extracted data", func() {
			It("is a no-op", func() {
				Expect(doc.Approve()).To(BeFalse())
				Expect(doc.Approved()).To(BeFalse())
			})
		})

		When("the document has extracted data", func() {
			BeforeEach(func() {
				doc.SetFields(Fields{InvoiceNumber: "F100"}, "")
			})

			It("marks the document approved", func() {
				Expect(doc.Approve()).To(BeTrue())
				Expect(doc.Approved()).To(BeTrue())
			})
		})
	})

	Describe("Clear", func() {
		BeforeEach(func() {
			doc.SetFields(Fields{
				InvoiceNumber: "F100",
				TotalAmount:   decimal.NewFromInt(1210),
			}, "raw")
			doc.Approve()
			doc.Annotate("Duplicitní číslo")
		})

		It("resets fields, approval and anomaly regardless of prior state", func() {
			doc.Clear()
			Expect(doc.HasData()).To(BeFalse())
			Expect(doc.Fields()).To(BeNil())
			Expect(doc.Approved()).To(BeFalse())
			Expect(doc.Anomaly()).To(BeEmpty())
			Expect(doc.RawResponse()).To(BeEmpty())
		})

		It("allows re-extraction afterwards", func() {
			doc.Clear()
			doc.SetFields(Fields{InvoiceNumber: "F101"}, "raw2")
			Expect(doc.Fields().InvoiceNumber).To(Equal("F101"))
			Expect(doc.Approved()).To(BeFalse())
		})
	})

	Describe("Annotate", func() {
		It("overwrites a previous annotation", func() {
			doc.Annotate("first")
			doc.Annotate("second")
			Expect(doc.Anomaly()).To(Equal("second"))
		})
	})

	Describe("BatchRecord", func() {
		BeforeEach(func() {
			doc.SetFields(Fields{
				InvoiceNumber: "2024-55",
				PartnerICO:    "12345678",
				TotalAmount:   decimal.NewFromInt(1210),
				Currency:      "CZK",
			}, "")
		})

		It("carries identifying fields but never the image", func() {
			rec := doc.BatchRecord()
			Expect(rec.ItemID).To(Equal(doc.ID()))
			Expect(rec.InvoiceNumber).To(Equal("2024-55"))
			Expect(rec.PartnerICO).To(Equal("12345678"))
			Expect(rec.Currency).To(Equal("CZK"))
		})
	})
})
