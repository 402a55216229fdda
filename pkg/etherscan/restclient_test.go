package etherscan

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
	return NewRESTClient(srv.URL, "test-key", 1, hc)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// go test -v --run TestGetBlockNumberByTime
func TestGetBlockNumberByTime(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("module") != "block" || q.Get("action") != "getblocknobytime" {
			t.Errorf("unexpected endpoint: %s", r.URL.RawQuery)
		}
		if q.Get("timestamp") != "1756684800" || q.Get("closest") != "after" {
			t.Errorf("unexpected params: %s", r.URL.RawQuery)
		}
		if q.Get("apikey") != "test-key" || q.Get("chainid") != "1" {
			t.Errorf("missing key or chain: %s", r.URL.RawQuery)
		}
		writeJSON(w, `{"status":"1","message":"OK","result":"23264000"}`)
	})

	block, err := client.GetBlockNumberByTime(context.Background(), 1756684800, After)
	if err != nil {
		t.Fatalf("GetBlockNumberByTime: %v", err)
	}
	if block != 23264000 {
		t.Errorf("block = %d", block)
	}
}

// go test -v --run TestGetBlockNumberByTimeAPIError
func TestGetBlockNumberByTimeAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)
	})

	_, err := client.GetBlockNumberByTime(context.Background(), 1, Before)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if !apiErr.IsRateLimited() {
		t.Error("expected rate limit detection from result text")
	}
}

// go test -v --run TestGetLogs
func TestGetLogs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("fromBlock") != "100" || q.Get("toBlock") != "199" || q.Get("topic0") != "0xabc" || q.Get("address") != "0xpool" {
			t.Errorf("unexpected params: %s", r.URL.RawQuery)
		}
		writeJSON(w, `{"status":"1","message":"OK","result":[
			{"address":"0xpool","topics":["0xabc"],"data":"0x01","blockNumber":"0x64","timeStamp":"0x68b4e280","logIndex":"0x","transactionHash":"0xaa","transactionIndex":"0x1"}
		]}`)
	})

	logs, err := client.GetLogs(context.Background(), LogQuery{Address: "0xpool", FromBlock: 100, ToBlock: 199, Topic0: "0xabc"})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].TransactionHash != "0xaa" || logs[0].TimeStamp != "0x68b4e280" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

// go test -v --run TestGetLogsNoRecords
func TestGetLogsNoRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"0","message":"No records found","result":[]}`)
	})

	logs, err := client.GetLogs(context.Background(), LogQuery{FromBlock: 1, ToBlock: 2})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("logs = %d", len(logs))
	}
}

// go test -v --run TestGetLogsTransportError
func TestGetLogsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetLogs(context.Background(), LogQuery{FromBlock: 1, ToBlock: 2})
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("transport failure must not look like an API error")
	}
}

// go test -v --run TestAPIErrorClassification
func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		err       APIError
		rateLimit bool
		noRecords bool
	}{
		{APIError{Message: "NOTOK", Result: "Max rate limit reached, please use API Key for higher rate limit"}, true, false},
		{APIError{Message: "Rate Limit exceeded"}, true, false},
		{APIError{Message: "No records found"}, false, true},
		{APIError{Message: "NOTOK", Result: "Error! Invalid block range"}, false, false},
	}
	for _, tt := range tests {
		if got := tt.err.IsRateLimited(); got != tt.rateLimit {
			t.Errorf("%v IsRateLimited = %v", tt.err, got)
		}
		if got := tt.err.IsNoRecords(); got != tt.noRecords {
			t.Errorf("%v IsNoRecords = %v", tt.err, got)
		}
	}
}
