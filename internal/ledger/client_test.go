package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReportUsage_Success(t *testing.T) {
	var got Usage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/coupon-usages" {
			t.Errorf("path = %q, want /api/coupon-usages", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	usage := Usage{
		HoldID:        "hold-1",
		RaffleID:      "raffle-1",
		CouponCode:    "TEN",
		DiscountMinor: 4500,
	}

	if err := c.ReportUsage(context.Background(), usage); err != nil {
		t.Fatalf("ReportUsage error: %v", err)
	}

	if got != usage {
		t.Fatalf("server received %+v, want %+v", got, usage)
	}
}

func TestReportUsage_ConflictIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	if err := c.ReportUsage(context.Background(), Usage{HoldID: "hold-1"}); err != nil {
		t.Fatalf("ReportUsage error: %v", err)
	}
}

func TestReportUsage_NotConfigured(t *testing.T) {
	c := NewClient("")

	if err := c.ReportUsage(context.Background(), Usage{HoldID: "hold-1"}); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}

func TestReportUsage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	if err := c.ReportUsage(context.Background(), Usage{HoldID: "hold-1"}); err == nil {
		t.Fatalf("expected error for 400 response")
	}
}
