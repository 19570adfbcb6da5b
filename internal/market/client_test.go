package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestTrendingSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"response": {"status": 200},
			"symbols": [
				{"id": 1, "symbol": "NVDA", "title": "NVIDIA"},
				{"id": 2, "symbol": "TSLA", "title": "Tesla"},
				{"id": 3, "symbol": "", "title": "empty"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithTrendingURL(srv.URL))
	got, err := client.TrendingSymbols(context.Background())
	if err != nil {
		t.Fatalf("TrendingSymbols: %v", err)
	}
	want := []string{"NVDA", "TSLA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("symbols = %v, want %v", got, want)
	}
}

func TestBoostedAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"url": "x", "chainId": "solana", "tokenAddress": "addr1"},
			{"url": "y", "chainId": "solana", "tokenAddress": "addr2"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(WithBoostsURL(srv.URL))
	got, err := client.BoostedAddresses(context.Background())
	if err != nil {
		t.Fatalf("BoostedAddresses: %v", err)
	}
	want := []string{"addr1", "addr2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("addresses = %v, want %v", got, want)
	}
}

func TestFeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithTrendingURL(srv.URL), WithBoostsURL(srv.URL))
	if _, err := client.TrendingSymbols(context.Background()); err == nil {
		t.Fatal("expected error for 429 response")
	}
	if _, err := client.BoostedAddresses(context.Background()); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols": []}`))
	}))
	defer srv.Close()

	client := NewClient(WithTrendingURL(srv.URL))
	got, err := client.TrendingSymbols(context.Background())
	if err != nil {
		t.Fatalf("TrendingSymbols: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("symbols = %v, want empty", got)
	}
}
