package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pricebackfill/pkg/httpclient"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	hc := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{Timeout: 5 * time.Second}, zap.NewNop())
	t.Cleanup(func() { _ = hc.Close() })
	return NewRESTClient(srv.URL, hc)
}

// go test -v --run TestGetKlines
func TestGetKlines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "ETHUSDT" || q.Get("interval") != "1m" ||
			q.Get("startTime") != "1000" || q.Get("endTime") != "5000" || q.Get("limit") != "1000" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[1000,"1","2","0.5","1.5","10",1999,"0",1,"0","0","0"],[2000,"1","2","0.5","1.6","11",2999,"0",1,"0","0","0"]]`))
	})

	rows, err := client.GetKlines(context.Background(), KlineQuery{
		Symbol: "ETHUSDT", Interval: "1m", StartTime: 1000, EndTime: 5000, Limit: 1000,
	})
	if err != nil {
		t.Fatalf("GetKlines: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if ms, _ := OpenTime(rows[1]); ms != 2000 {
		t.Errorf("second open time = %d", ms)
	}
}

// go test -v --run TestGetKlinesHTTPError
func TestGetKlinesHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
	})

	_, err := client.GetKlines(context.Background(), KlineQuery{Symbol: "ETHUSDT", Interval: "1m", Limit: 10})
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("code = %d", httpErr.Code)
	}
}
