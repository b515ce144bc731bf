package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/quotecraft/quotecraft/internal/format"
	"github.com/quotecraft/quotecraft/internal/httpx"
	"github.com/quotecraft/quotecraft/internal/services"
)

// PublicHandler serves the tokenized read-only quote view. It is the
// only unauthenticated surface besides the health checks.
type PublicHandler struct {
	Tokens *services.TokenService
}

func NewPublicHandler(tokens *services.TokenService) *PublicHandler {
	return &PublicHandler{Tokens: tokens}
}

var publicPageTmpl = template.Must(template.New("public_quote").Funcs(template.FuncMap{
	"currency": format.Currency,
	"date":     format.Date,
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Orcamento {{.Number}}</title>
<style>
body { font-family: 'Segoe UI', Arial, sans-serif; color: #333; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { background: #2E5266; color: white; padding: 16px; border-radius: 8px; text-align: center; }
table { width: 100%; border-collapse: collapse; }
th { background: #2E5266; color: white; padding: 8px; text-align: left; }
td { padding: 8px; border-bottom: 1px solid #eee; }
.total { font-size: 18px; font-weight: bold; color: #2E5266; }
</style></head>
<body>
<h1>Orcamento {{.Number}}</h1>
<p><strong>{{.ClientName}}</strong>{{if .ClientCompany}} &mdash; {{.ClientCompany}}{{end}}</p>
<p>Emitido em {{date .IssueDate}}</p>
<table>
<tr><th>Descricao</th><th>Qtd</th><th>Preco</th><th>Total</th></tr>
{{range .Items}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{currency .UnitPrice}}</td><td>{{currency .LineTotal}}</td></tr>
{{end}}
{{if gt .DiscountAmount 0.0}}<tr><td colspan="3" style="text-align:right">Desconto</td><td>- {{currency .DiscountAmount}}</td></tr>{{end}}
<tr class="total"><td colspan="3" style="text-align:right">Total</td><td>{{currency .Total}}</td></tr>
</table>
</body>
</html>`))

const unavailablePage = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Link indisponivel</title></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; text-align: center; margin-top: 4em;">
<h1>Link indisponivel</h1>
<p>Este orcamento nao esta mais disponivel. Entre em contato para receber um novo link.</p>
</body>
</html>`

// View: GET /q/{token}. Every token failure renders the same generic
// page with the same status code, so the response never reveals whether
// a guessed token exists, expired or was revoked.
func (h *PublicHandler) View(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/q/")
	token = strings.Trim(token, "/")

	quote, err := h.Tokens.Validate(r.Context(), token)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusNotFound, "link_unavailable", nil)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(unavailablePage))
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, quote)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := publicPageTmpl.Execute(w, quote); err != nil {
		// headers are gone at this point; the partial page is the best we can do
		_ = err
	}
}
