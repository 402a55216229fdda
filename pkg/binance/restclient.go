package binance

import (
	"context"
	"fmt"
	"strconv"

	"pricebackfill/pkg/httpclient"
)

const klinesPath = "/api/v3/klines"

type RESTClient struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
}

func NewRESTClient(baseURL string, httpClient *httpclient.HTTPClient) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// GetKlines fetches one page of klines. Rows are returned undecoded so the
// caller can skip bad rows individually.
func (c *RESTClient) GetKlines(ctx context.Context, q KlineQuery) ([]KlineRow, error) {
	query := map[string]string{
		"symbol":    q.Symbol,
		"interval":  q.Interval,
		"startTime": strconv.FormatInt(q.StartTime, 10),
		"endTime":   strconv.FormatInt(q.EndTime, 10),
		"limit":     strconv.Itoa(q.Limit),
	}

	var rows []KlineRow
	if err := c.httpClient.Get(ctx, c.baseURL+klinesPath, query, &rows); err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	return rows, nil
}
