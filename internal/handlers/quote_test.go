package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	intdb "github.com/quotecraft/quotecraft/internal/db"
	"github.com/quotecraft/quotecraft/internal/mail"
	"github.com/quotecraft/quotecraft/internal/models"
	"github.com/quotecraft/quotecraft/internal/services"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (f *fakeDispatcher) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := intdb.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newQuoteHandler(t *testing.T, conn *gorm.DB) (*QuoteHandler, *fakeDispatcher) {
	t.Helper()
	dispatcher := &fakeDispatcher{}
	tokens := services.NewTokenService(conn, 30)
	svc := services.NewQuoteService(conn, tokens, dispatcher, "http://localhost:8080")
	return NewQuoteHandler(conn, svc, tokens), dispatcher
}

func seedQuoteFixtures(t *testing.T, conn *gorm.DB) models.Client {
	t.Helper()
	client := models.Client{Name: "Acme Ltda", Email: "acme@example.com"}
	if err := conn.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return client
}

func TestQuoteCreateAndSendFlow(t *testing.T) {
	conn := setupTestDB(t)
	client := seedQuoteFixtures(t, conn)
	h, dispatcher := newQuoteHandler(t, conn)

	body := `{"client_id":` + strconv.Itoa(int(client.ID)) + `,"items":[{"description":"Design","unit_price":100,"quantity":2},{"description":"Hosting","unit_price":50,"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Total != 250 {
		t.Fatalf("expected total 250, got %v", created.Total)
	}

	sendReq := httptest.NewRequest(http.MethodPost, "/quotes/send?id="+strconv.Itoa(int(created.ID)), nil)
	sendW := httptest.NewRecorder()
	h.Send(sendW, sendReq)
	if sendW.Code != http.StatusOK {
		t.Fatalf("send: expected 200 got %d body=%s", sendW.Code, sendW.Body.String())
	}
	var sendResp map[string]any
	if err := json.Unmarshal(sendW.Body.Bytes(), &sendResp); err != nil {
		t.Fatalf("decode send: %v", err)
	}
	link, _ := sendResp["view_link"].(string)
	if !strings.HasPrefix(link, "http://localhost:8080/q/") {
		t.Fatalf("unexpected view link %q", link)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("expected 1 email, got %d", dispatcher.count())
	}

	// Replay must not send again.
	replayW := httptest.NewRecorder()
	h.Send(replayW, httptest.NewRequest(http.MethodPost, "/quotes/send?id="+strconv.Itoa(int(created.ID)), nil))
	if replayW.Code != http.StatusOK {
		t.Fatalf("replay: expected 200 got %d", replayW.Code)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("replay dispatched a second email: %d", dispatcher.count())
	}
}

func TestQuoteCreateValidation(t *testing.T) {
	conn := setupTestDB(t)
	h, _ := newQuoteHandler(t, conn)

	req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"client_id":0,"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "validation_failed" {
		t.Fatalf("unexpected error %v", resp["error"])
	}
}

func TestQuoteApproveFromDraftConflicts(t *testing.T) {
	conn := setupTestDB(t)
	client := seedQuoteFixtures(t, conn)
	h, _ := newQuoteHandler(t, conn)

	quote, err := h.Svc.Create(context.Background(), services.CreateQuoteInput{
		ClientID: client.ID,
		Items:    []services.ItemInput{{Description: "Design", UnitPrice: 100, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := httptest.NewRecorder()
	h.Approve(w, httptest.NewRequest(http.MethodPost, "/quotes/approve?id="+strconv.Itoa(int(quote.ID)), nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "invalid_state" {
		t.Fatalf("unexpected error %v", resp["error"])
	}
}

func TestQuoteSendDispatchFailure(t *testing.T) {
	conn := setupTestDB(t)
	client := seedQuoteFixtures(t, conn)
	h, dispatcher := newQuoteHandler(t, conn)
	dispatcher.fail = true

	quote, err := h.Svc.Create(context.Background(), services.CreateQuoteInput{
		ClientID: client.ID,
		Items:    []services.ItemInput{{Description: "Design", UnitPrice: 100, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := httptest.NewRecorder()
	h.Send(w, httptest.NewRequest(http.MethodPost, "/quotes/send?id="+strconv.Itoa(int(quote.ID)), nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d body=%s", w.Code, w.Body.String())
	}

	var reloaded models.Quote
	if err := conn.First(&reloaded, quote.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.StatusDraft {
		t.Fatalf("failed send must not mark sent, got %s", reloaded.Status)
	}
}

func TestQuotePDFEndpoint(t *testing.T) {
	conn := setupTestDB(t)
	client := seedQuoteFixtures(t, conn)
	h, _ := newQuoteHandler(t, conn)

	quote, err := h.Svc.Create(context.Background(), services.CreateQuoteInput{
		ClientID: client.ID,
		Items:    []services.ItemInput{{Description: "Design", UnitPrice: 100, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := httptest.NewRecorder()
	h.PDF(w, httptest.NewRequest(http.MethodGet, "/quotes/pdf?id="+strconv.Itoa(int(quote.ID)), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Fatal("response is not a PDF document")
	}
}

func TestQuoteListFilters(t *testing.T) {
	conn := setupTestDB(t)
	client := seedQuoteFixtures(t, conn)
	h, _ := newQuoteHandler(t, conn)

	for i := 0; i < 3; i++ {
		if _, err := h.Svc.Create(context.Background(), services.CreateQuoteInput{
			ClientID: client.ID,
			Items:    []services.ItemInput{{Description: "Design", UnitPrice: 100, Quantity: 1}},
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/quotes?status=draft", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp struct {
		Items []models.Quote `json:"items"`
		Total int64          `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.Items) != 3 {
		t.Fatalf("expected 3 drafts, got total=%d len=%d", resp.Total, len(resp.Items))
	}

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/quotes?status=approved", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 {
		t.Fatalf("expected 0 approved, got %d", resp.Total)
	}
}
