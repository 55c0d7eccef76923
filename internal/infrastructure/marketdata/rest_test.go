package marketdata_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/infrastructure/marketdata"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "APTUSDT" {
			t.Errorf("unexpected symbol %q", got)
		}
		w.Write([]byte(`{"symbol":"APTUSDT","price":"8.1234"}`))
	}))
	defer srv.Close()

	client := marketdata.NewRESTClient(srv.URL, 0, testLogger())
	price, err := client.FetchPrice(context.Background(), "apt")
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if price != 8.1234 {
		t.Errorf("price = %v, want 8.1234", price)
	}
}

func TestFetchPriceUntrackedToken(t *testing.T) {
	client := marketdata.NewRESTClient("http://localhost:0", 0, testLogger())
	if _, err := client.FetchPrice(context.Background(), "NOTACOIN"); err == nil {
		t.Fatal("expected error for untracked token")
	}
}

func TestFetchPriceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := marketdata.NewRESTClient(srv.URL, 0, testLogger())
	if _, err := client.FetchPrice(context.Background(), "BTC"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestFetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticker/24hr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"symbol":"APTUSDT","lastPrice":"8.50","priceChangePercent":"-1.2","highPrice":"8.90","lowPrice":"8.10","volume":"123456.7"},
			{"symbol":"BTCUSDT","lastPrice":"64000.5","priceChangePercent":"2.4","highPrice":"65000","lowPrice":"62000","volume":"9999"},
			{"symbol":"OBSCUREUSDT","lastPrice":"1.0","priceChangePercent":"0","highPrice":"1","lowPrice":"1","volume":"1"},
			{"symbol":"ETHUSDT","lastPrice":"not-a-number","priceChangePercent":"0","highPrice":"0","lowPrice":"0","volume":"0"}
		]`))
	}))
	defer srv.Close()

	client := marketdata.NewRESTClient(srv.URL, 0, testLogger())
	quotes, err := client.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}

	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2 (untracked and malformed dropped)", len(quotes))
	}

	apt, ok := quotes["APT"]
	if !ok {
		t.Fatal("APT quote missing")
	}
	if apt.Price != 8.50 || apt.Change24h != -1.2 || apt.High24h != 8.90 {
		t.Errorf("APT quote fields off: %+v", apt)
	}
	if apt.Source != model.SourceREST {
		t.Errorf("source = %s, want %s", apt.Source, model.SourceREST)
	}

	if _, ok := quotes["ETH"]; ok {
		t.Error("malformed ETH ticker should be dropped")
	}
}
