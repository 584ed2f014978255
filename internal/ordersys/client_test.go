package ordersys

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/floristika/insumos-system/internal/model"
)

func testSubmission() *model.Submission {
	return &model.Submission{
		FlowerLines: []model.FlowerLine{
			{
				SKU:       "rose-red",
				ColorName: "Rosas",
				Quantity:  12,
				UnitCost:  decimal.NewFromInt(500),
				LineCost:  decimal.NewFromInt(6000),
			},
		},
	}
}

func TestSubmitOrder_Accepted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/orders" {
			t.Fatalf("path = %s, want /api/orders", r.URL.Path)
		}

		var sub model.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Fatalf("decode submission: %v", err)
		}
		if len(sub.FlowerLines) != 1 || sub.FlowerLines[0].SKU != "rose-red" {
			t.Fatalf("unexpected submission: %+v", sub)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Receipt{OrderNumber: "ORD-1001"})
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	receipt, err := client.SubmitOrder(ctx, testSubmission())
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if receipt.OrderNumber != "ORD-1001" {
		t.Fatalf("order number = %q, want ORD-1001", receipt.OrderNumber)
	}
}

func TestSubmitOrder_RejectionVerbatim(t *testing.T) {
	rejection := `{"error":"insufficient stock","sku":"rose-red"}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(rejection))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.SubmitOrder(ctx, testSubmission())

	var rejErr *RejectionError
	if !errors.As(err, &rejErr) {
		t.Fatalf("err = %v, want *RejectionError", err)
	}
	if rejErr.Status != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rejErr.Status, http.StatusConflict)
	}
	if string(rejErr.Body) != rejection {
		t.Fatalf("rejection body = %q, want verbatim %q", rejErr.Body, rejection)
	}
}

func TestSubmitOrder_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.SubmitOrder(ctx, testSubmission())
	if err == nil {
		t.Fatalf("expected error for unexpected status")
	}

	var rejErr *RejectionError
	if errors.As(err, &rejErr) {
		t.Fatalf("422 must not be reported as a rejection")
	}
}

func TestSubmitOrder_NotConfigured(t *testing.T) {
	var client *Client

	_, err := client.SubmitOrder(context.Background(), testSubmission())
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
