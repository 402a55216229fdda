package etherscan

import (
	"fmt"
	"strings"
)

// APIError is a well-formed response whose envelope reports failure.
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result == "" {
		return fmt.Sprintf("etherscan: %s", e.Message)
	}
	return fmt.Sprintf("etherscan: %s - %s", e.Message, e.Result)
}

// IsRateLimited matches the provider's wording, which is not a stable contract.
func (e *APIError) IsRateLimited() bool {
	return strings.Contains(strings.ToLower(e.Message), "rate limit") ||
		strings.Contains(strings.ToLower(e.Result), "rate limit")
}

// IsNoRecords reports the envelope getLogs uses for an empty range.
func (e *APIError) IsNoRecords() bool {
	return strings.EqualFold(strings.TrimSpace(e.Message), "No records found")
}
