package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/pkg/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", apperr.Validation("bad")), http.StatusBadRequest},
		{"forbidden", apperr.Forbidden("no"), http.StatusForbidden},
		{"not found", apperr.NotFound("part", 1), http.StatusNotFound},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict},
		{"transition", &apperr.InvalidTransitionError{Entity: "purchase order", ID: 1, From: "draft", To: "ordered"}, http.StatusConflict},
		{"stock", &apperr.InsufficientStockError{PartID: 1, Available: decimal.NewFromInt(4), Requested: decimal.NewFromInt(10)}, http.StatusUnprocessableEntity},
		{"structural", apperr.Structural("cycle"), http.StatusInternalServerError},
		{"plain", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Fatalf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/parts/1", nil)

	RespondError(rec, req, errors.New("pq: connection refused"))

	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || body.Success || body.Error != "internal server error" {
		t.Fatalf("unexpected response %d %+v", rec.Code, body)
	}
}

func TestDecodeRunsValidation(t *testing.T) {
	type request struct {
		Name string `json:"name" validate:"required"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	var dst request
	err := Decode(req, &dst)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
