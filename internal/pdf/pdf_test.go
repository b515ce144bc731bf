package pdf

import (
	"bytes"
	"testing"
	"time"
)

func sampleQuote() QuoteData {
	return QuoteData{
		Number:    "QC-2025-0001",
		Status:    "sent",
		IssueDate: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		Client:    ClientData{Name: "Maria Silva", Company: "Acme Ltda"},
		Items: []ItemData{
			{Description: "Consultoria", UnitPrice: 150, Quantity: 2},
			{Description: "Manutencao mensal", UnitPrice: 80, Quantity: 1},
		},
		Subtotal: 380,
		Total:    380,
	}
}

func TestQuotePDF(t *testing.T) {
	out, err := QuotePDF(sampleQuote())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF, starts with %q", out[:min(8, len(out))])
	}
	if len(out) < 1000 {
		t.Fatalf("suspiciously small document: %d bytes", len(out))
	}
}

func TestQuotePDFWithDiscount(t *testing.T) {
	data := sampleQuote()
	data.DiscountAmount = 38
	data.Total = 342
	out, err := QuotePDF(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestQuotePDFNoItems(t *testing.T) {
	data := sampleQuote()
	data.Items = nil
	data.Subtotal, data.Total = 0, 0
	if _, err := QuotePDF(data); err != nil {
		t.Fatalf("empty item list should still render: %v", err)
	}
}
