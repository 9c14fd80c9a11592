package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/pkg/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *client) do(method, path string, body any, want int) envelope {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.send(req, want)
}

func (c *client) send(req *http.Request, want int) envelope {
	c.t.Helper()
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			c.t.Fatalf("%s %s: decode: %v", req.Method, req.URL.Path, err)
		}
	}
	if rec.Code != want {
		c.t.Fatalf("%s %s: expected %d, got %d (%s)", req.Method, req.URL.Path, want, rec.Code, rec.Body.String())
	}
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

func newTestServer(t *testing.T) *client {
	t.Helper()
	infra := &Infrastructure{
		Config: config.Config{
			JWTSecret:      "test-secret",
			TokenTTL:       time.Hour,
			RequestTimeout: 5 * time.Second,
		},
		Store: NewMemoryStore(),
	}
	server, cleanup, err := InitializeServer(infra, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(cleanup)

	token, err := SeedDevelopment(context.Background(), infra.Store, server.Tokens())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return &client{t: t, handler: server.Router(), token: token}
}

func TestHealthAndAuthentication(t *testing.T) {
	c := newTestServer(t)

	c.do("GET", "/health", nil, http.StatusOK)

	anonymous := &client{t: t, handler: c.handler}
	anonymous.do("GET", "/api/me", nil, http.StatusUnauthorized)

	me := decode[struct {
		Name string `json:"name"`
	}](t, c.do("GET", "/api/me", nil, http.StatusOK))
	if me.Name != "Administrator" {
		t.Fatalf("unexpected actor %q", me.Name)
	}
}

func TestPurchaseOrderOverHTTP(t *testing.T) {
	c := newTestServer(t)

	part := decode[struct {
		ID uint `json:"id"`
	}](t, c.do("POST", "/api/parts", map[string]any{
		"part_number":   "BRG-6204",
		"name":          "Ball bearing 6204",
		"unit":          "pcs",
		"minimum_stock": "4",
	}, http.StatusCreated))

	type order struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
		Lines  []struct {
			ID               uint            `json:"id"`
			QuantityReceived decimal.Decimal `json:"quantity_received"`
		} `json:"lines"`
	}

	created := decode[order](t, c.do("POST", "/api/orders", map[string]any{
		"supplier_id":  3,
		"order_number": "PO-1001",
		"lines": []map[string]any{
			{"part_id": part.ID, "quantity": "10", "unit_price": "2.75", "currency": "EUR"},
		},
	}, http.StatusCreated))
	base := fmt.Sprintf("/api/orders/%d", created.ID)

	c.do("POST", base+"/approve", map[string]any{"signature": base64.StdEncoding.EncodeToString([]byte("sig"))}, http.StatusConflict)
	c.do("POST", base+"/submit", nil, http.StatusOK)
	c.do("POST", base+"/approve", map[string]any{}, http.StatusBadRequest)
	c.do("POST", base+"/approve", map[string]any{"signature": base64.StdEncoding.EncodeToString([]byte("sig"))}, http.StatusOK)
	c.do("POST", base+"/place", nil, http.StatusOK)

	lineID := created.Lines[0].ID
	c.do("POST", base+"/receipts", map[string]any{
		"lines": []map[string]any{{"line_id": lineID, "quantity": "11"}},
	}, http.StatusBadRequest)
	c.do("POST", base+"/receipts", map[string]any{
		"lines": []map[string]any{{"line_id": lineID, "quantity": "4"}, {"line_id": lineID, "quantity": "1"}},
	}, http.StatusBadRequest)
	c.do("POST", base+"/receipts", map[string]any{
		"delivery_note": "DN-77",
		"lines":         []map[string]any{{"line_id": lineID, "quantity": "4"}},
	}, http.StatusCreated)

	got := decode[order](t, c.do("GET", base, nil, http.StatusOK))
	if got.Status != "partially_received" {
		t.Fatalf("expected partially_received, got %s", got.Status)
	}
	if !got.Lines[0].QuantityReceived.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 4 received, got %s", got.Lines[0].QuantityReceived)
	}

	stock := decode[struct {
		CurrentQuantity decimal.Decimal `json:"current_quantity"`
	}](t, c.do("GET", fmt.Sprintf("/api/parts/%d", part.ID), nil, http.StatusOK))
	if !stock.CurrentQuantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected stock 4, got %s", stock.CurrentQuantity)
	}

	receipts := decode[[]json.RawMessage](t, c.do("GET", base+"/receipts", nil, http.StatusOK))
	if len(receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(receipts))
	}

	req := httptest.NewRequest("GET", base+"/export", nil)
	req.Header.Set("Authorization", "Bearer "+c.token)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Fatalf("export failed: %d", rec.Code)
	}
}

func TestAttachmentUploadOverHTTP(t *testing.T) {
	c := newTestServer(t)

	quote := decode[struct {
		ID uint `json:"id"`
	}](t, c.do("POST", "/api/quotes", map[string]any{
		"supplier_id": 5,
		"lines":       []map[string]any{{"description": "Hydraulic hose 1m", "quantity": "2", "unit": "pcs"}},
	}, http.StatusCreated))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	file, err := form.CreateFormFile("file", "offer.pdf")
	if err != nil {
		t.Fatal(err)
	}
	file.Write([]byte("%PDF-1.4"))
	form.WriteField("description", "supplier offer")
	form.Close()

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/quotes/%d/attachments", quote.ID), &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	attachment := decode[struct {
		ID       uint   `json:"id"`
		FileName string `json:"file_name"`
	}](t, c.send(req, http.StatusCreated))
	if attachment.FileName != "offer.pdf" {
		t.Fatalf("unexpected file name %q", attachment.FileName)
	}

	list := decode[[]json.RawMessage](t, c.do("GET", fmt.Sprintf("/api/quotes/%d/attachments", quote.ID), nil, http.StatusOK))
	if len(list) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(list))
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/attachments/%d", attachment.ID), nil)
	req.Header.Set("Authorization", "Bearer "+c.token)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF-1.4" {
		t.Fatalf("download failed: %d %q", rec.Code, rec.Body.String())
	}
}
