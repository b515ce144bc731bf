// Package pdf renders a quote snapshot as a PDF document. Rendering is a
// pure function of its input and never mutates the quote.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/quotecraft/quotecraft/internal/format"
)

// Palette of the rendered document.
var (
	navy    = [3]int{46, 82, 102}   // #2E5266
	accent  = [3]int{115, 165, 128} // #73A580
	lightBG = [3]int{240, 244, 247} // #F0F4F7
)

type ItemData struct {
	Description string
	UnitPrice   float64
	Quantity    int
}

type ClientData struct {
	Name    string
	Company string
}

// QuoteData is the read-only snapshot consumed by the renderer.
type QuoteData struct {
	Number         string
	Status         string
	IssueDate      time.Time
	Client         ClientData
	Items          []ItemData
	Subtotal       float64
	DiscountAmount float64
	Total          float64
}

// QuotePDF renders the snapshot and returns the document bytes.
func QuotePDF(data QuoteData) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	// Header band
	doc.SetFillColor(navy[0], navy[1], navy[2])
	doc.Rect(0, 0, 210, 32, "F")
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 22)
	doc.SetXY(10, 8)
	doc.CellFormat(190, 10, "ORCAMENTO", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.SetX(10)
	doc.CellFormat(190, 7, data.Number, "", 1, "C", false, 0, "")

	// Client block
	doc.SetY(40)
	doc.SetTextColor(51, 51, 51)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(95, 6, "Cliente", "", 0, "L", false, 0, "")
	doc.CellFormat(95, 6, "Data de emissao", "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(95, 6, data.Client.Name, "", 0, "L", false, 0, "")
	doc.CellFormat(95, 6, format.Date(data.IssueDate), "", 1, "R", false, 0, "")
	if data.Client.Company != "" {
		doc.CellFormat(95, 6, data.Client.Company, "", 1, "L", false, 0, "")
	}

	// Items table
	doc.Ln(6)
	doc.SetFillColor(navy[0], navy[1], navy[2])
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(90, 8, "Descricao", "", 0, "L", true, 0, "")
	doc.CellFormat(25, 8, "Qtd", "", 0, "C", true, 0, "")
	doc.CellFormat(35, 8, "Preco unit.", "", 0, "R", true, 0, "")
	doc.CellFormat(40, 8, "Total", "", 1, "R", true, 0, "")

	doc.SetTextColor(51, 51, 51)
	doc.SetFont("Helvetica", "", 10)
	fill := false
	for _, it := range data.Items {
		if fill {
			doc.SetFillColor(lightBG[0], lightBG[1], lightBG[2])
		} else {
			doc.SetFillColor(255, 255, 255)
		}
		doc.CellFormat(90, 7, it.Description, "", 0, "L", true, 0, "")
		doc.CellFormat(25, 7, fmt.Sprintf("%d", it.Quantity), "", 0, "C", true, 0, "")
		doc.CellFormat(35, 7, format.Currency(it.UnitPrice), "", 0, "R", true, 0, "")
		doc.CellFormat(40, 7, format.Currency(it.UnitPrice*float64(it.Quantity)), "", 1, "R", true, 0, "")
		fill = !fill
	}

	// Totals
	doc.Ln(4)
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(150, 7, "Subtotal", "", 0, "R", false, 0, "")
	doc.CellFormat(40, 7, format.Currency(data.Subtotal), "", 1, "R", false, 0, "")
	if data.DiscountAmount > 0 {
		doc.SetTextColor(accent[0], accent[1], accent[2])
		doc.CellFormat(150, 7, "Desconto", "", 0, "R", false, 0, "")
		doc.CellFormat(40, 7, "- "+format.Currency(data.DiscountAmount), "", 1, "R", false, 0, "")
		doc.SetTextColor(51, 51, 51)
	}
	doc.SetFont("Helvetica", "B", 13)
	doc.SetTextColor(navy[0], navy[1], navy[2])
	doc.CellFormat(150, 9, "Total", "", 0, "R", false, 0, "")
	doc.CellFormat(40, 9, format.Currency(data.Total), "", 1, "R", false, 0, "")

	// Footer
	doc.SetY(-30)
	doc.SetFont("Helvetica", "I", 9)
	doc.SetTextColor(120, 120, 120)
	doc.CellFormat(190, 6, "Orcamento gerado por QuoteCraft em "+format.Date(time.Now()), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}
