package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pricebackfill/pkg/httpclient"
)

type RESTClient struct {
	baseURL    string
	apiKey     string
	chainID    int64
	httpClient *httpclient.HTTPClient
}

func NewRESTClient(baseURL, apiKey string, chainID int64, httpClient *httpclient.HTTPClient) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		chainID:    chainID,
		httpClient: httpClient,
	}
}

// GetBlockNumberByTime returns the block closest to the UNIX timestamp ts on
// the requested side.
func (c *RESTClient) GetBlockNumberByTime(ctx context.Context, ts int64, closest Closest) (uint64, error) {
	result, err := c.call(ctx, map[string]string{
		"module":    "block",
		"action":    "getblocknobytime",
		"timestamp": strconv.FormatInt(ts, 10),
		"closest":   string(closest),
	})
	if err != nil {
		return 0, err
	}

	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return 0, fmt.Errorf("decode block number: %w", err)
	}
	block, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block number %q: %w", s, err)
	}
	return block, nil
}

// GetLogs returns the logs in q's inclusive block range. An empty range comes
// back as an empty slice, not an error.
func (c *RESTClient) GetLogs(ctx context.Context, q LogQuery) ([]Log, error) {
	result, err := c.call(ctx, map[string]string{
		"module":    "logs",
		"action":    "getLogs",
		"address":   q.Address,
		"fromBlock": strconv.FormatUint(q.FromBlock, 10),
		"toBlock":   strconv.FormatUint(q.ToBlock, 10),
		"topic0":    q.Topic0,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNoRecords() {
			return []Log{}, nil
		}
		return nil, err
	}

	var logs []Log
	if err := json.Unmarshal(result, &logs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return logs, nil
}

// call returns the raw result of a successful envelope, *APIError for a
// failed one, and a wrapped transport error otherwise.
func (c *RESTClient) call(ctx context.Context, params map[string]string) (json.RawMessage, error) {
	params["chainid"] = strconv.FormatInt(c.chainID, 10)
	params["apikey"] = c.apiKey

	var resp Response
	if err := c.httpClient.Get(ctx, c.baseURL, params, &resp); err != nil {
		return nil, fmt.Errorf("etherscan %s/%s: %w", params["module"], params["action"], err)
	}

	if resp.Status != "1" {
		apiErr := &APIError{Message: resp.Message}
		var s string
		if json.Unmarshal(resp.Result, &s) == nil {
			apiErr.Result = s
		}
		return nil, apiErr
	}
	return resp.Result, nil
}
