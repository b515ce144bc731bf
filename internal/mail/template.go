package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/quotecraft/quotecraft/internal/format"
	"github.com/quotecraft/quotecraft/internal/models"
)

// EmailData carries everything the quote email template needs.
type EmailData struct {
	Quote    models.Quote
	Client   models.Client
	ViewLink string
}

var quoteEmailTmpl = template.Must(template.New("quote_email").Funcs(template.FuncMap{
	"currency": format.Currency,
	"date":     format.Date,
	"line": func(it models.QuoteItem) string {
		return format.Currency(it.LineTotal())
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background-color: #2E5266; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
.content { background-color: #f9f9f9; padding: 20px; border: 1px solid #ddd; }
.footer { background-color: #2E5266; color: white; padding: 15px; text-align: center; border-radius: 0 0 8px 8px; font-size: 12px; }
.btn { display: inline-block; background-color: #73A580; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: bold; }
table { width: 100%; border-collapse: collapse; margin: 15px 0; }
th { background-color: #2E5266; color: white; padding: 10px; text-align: left; }
td { padding: 8px; border-bottom: 1px solid #eee; }
.total-row { font-size: 18px; font-weight: bold; color: #2E5266; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1 style="color: white; margin: 0;">Orcamento</h1>
    <p style="margin: 5px 0 0 0; color: white;">{{.Quote.Number}}</p>
  </div>
  <div class="content">
    <p>Prezado(a) <strong>{{.Client.Name}}</strong>,</p>
    <p>Segue o orcamento solicitado:</p>
    <table>
      <tr><th>Servico</th><th>Qtd</th><th>Preco</th><th>Total</th></tr>
      {{range .Quote.Items}}
      <tr>
        <td>{{.Description}}</td>
        <td style="text-align: center;">{{.Quantity}}</td>
        <td style="text-align: right;">{{currency .UnitPrice}}</td>
        <td style="text-align: right;">{{line .}}</td>
      </tr>
      {{end}}
      {{if gt .DiscountAmount 0.0}}
      <tr>
        <td colspan="3" style="text-align: right;"><strong>Desconto:</strong></td>
        <td style="text-align: right; color: #73A580;">- {{currency .DiscountAmount}}</td>
      </tr>
      {{end}}
      <tr class="total-row">
        <td colspan="3" style="text-align: right;">Total:</td>
        <td style="text-align: right;">{{currency .Quote.Total}}</td>
      </tr>
    </table>
    <p style="text-align: center; margin: 25px 0;">
      <a class="btn" href="{{.ViewLink}}">Visualizar Orcamento</a>
    </p>
    <p style="font-size: 12px; color: #777;">Emitido em {{date .Quote.IssueDate}}.</p>
  </div>
  <div class="footer">QuoteCraft</div>
</div>
</body>
</html>`))

// DiscountAmount returns the discount applied to the quote total.
func (d EmailData) DiscountAmount() float64 {
	return d.Quote.Subtotal - d.Quote.Total
}

// BuildQuoteEmailHTML renders the quote email body.
func BuildQuoteEmailHTML(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := quoteEmailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render quote email: %w", err)
	}
	return buf.String(), nil
}
