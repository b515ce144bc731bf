package services

import (
	"time"

	"github.com/quotecraft/quotecraft/internal/models"
)

// PublicQuote is the read-only projection served on the tokenized public
// path. It deliberately excludes client contact details, internal notes
// and database ids: what is listed here is the entire public surface.
type PublicQuote struct {
	Number         string       `json:"number"`
	Status         string       `json:"status"`
	IssueDate      time.Time    `json:"issue_date"`
	ClientName     string       `json:"client_name"`
	ClientCompany  string       `json:"client_company,omitempty"`
	Items          []PublicItem `json:"items"`
	Subtotal       float64      `json:"subtotal"`
	DiscountAmount float64      `json:"discount_amount"`
	Total          float64      `json:"total"`
}

type PublicItem struct {
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// ProjectPublic maps a quote onto its public projection.
func ProjectPublic(q models.Quote) PublicQuote {
	items := make([]PublicItem, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, PublicItem{
			Description: it.Description,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal(),
		})
	}
	return PublicQuote{
		Number:         q.Number,
		Status:         q.Status,
		IssueDate:      q.IssueDate,
		ClientName:     q.Client.Name,
		ClientCompany:  q.Client.Company,
		Items:          items,
		Subtotal:       q.Subtotal,
		DiscountAmount: q.Subtotal - q.Total,
		Total:          q.Total,
	}
}
