package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// go test -v --run TestPush
func TestPush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	RowsTotal.WithLabelValues(FlowSwaps, "inserted").Inc()

	if err := Push(srv.URL, "pricebackfill"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/job/pricebackfill") {
		t.Errorf("push path = %s", gotPath)
	}
}

// go test -v --run TestRegistryCollects
func TestRegistryCollects(t *testing.T) {
	CommitsTotal.WithLabelValues(FlowCandles).Inc()
	if n, err := testutil.GatherAndCount(Registry, "backfill_commits_total"); err != nil || n == 0 {
		t.Fatalf("gathered %d series, err %v", n, err)
	}
}
