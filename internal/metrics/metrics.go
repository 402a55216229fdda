package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	FlowCandles = "candles"
	FlowSwaps   = "swaps"

	SourceBinance   = "binance"
	SourceEtherscan = "etherscan"
)

var (
	// Registry holds only backfill metrics so a push does not carry Go runtime noise.
	Registry = prometheus.NewRegistry()

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_requests_total",
			Help: "Provider requests by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	RowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_rows_total",
			Help: "Provider records by flow and outcome (inserted, duplicate, skipped).",
		},
		[]string{"flow", "outcome"},
	)
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_retries_total",
			Help: "Retried requests by flow and reason.",
		},
		[]string{"flow", "reason"},
	)
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backfill_commits_total",
			Help: "Storage commits by flow.",
		},
		[]string{"flow"},
	)
	Cursor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backfill_cursor",
			Help: "Last cursor position handled per flow (ms for candles, block for swaps).",
		},
		[]string{"flow"},
	)
)

func init() {
	Registry.MustRegister(
		RequestsTotal,
		RowsTotal,
		RetriesTotal,
		CommitsTotal,
		Cursor,
	)
}

// Push sends the registry to a Prometheus pushgateway. Batch jobs finish
// before any scrape could reach them.
func Push(url, job string) error {
	if err := push.New(url, job).Gatherer(Registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
