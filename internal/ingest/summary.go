package ingest

import "go.uber.org/zap"

// PageStats counts what a paginator did, independent of what was stored.
type PageStats struct {
	Pages   int // non-empty pages handed to the callback
	Empty   int
	Skipped int // pages given up after a provider error
	Retries int
}

// Summary is the outcome of one flow run.
type Summary struct {
	Flow string
	PageStats

	Fetched    int
	Decoded    int
	Inserted   int
	Duplicates int
	Invalid    int // records dropped by the decoder
}

func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.String("flow", s.Flow),
		zap.Int("pages", s.Pages),
		zap.Int("empty_pages", s.Empty),
		zap.Int("skipped_pages", s.Skipped),
		zap.Int("retries", s.Retries),
		zap.Int("fetched", s.Fetched),
		zap.Int("decoded", s.Decoded),
		zap.Int("inserted", s.Inserted),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("invalid", s.Invalid),
	}
}

func (s *Summary) count(inserted bool) {
	s.Decoded++
	if inserted {
		s.Inserted++
	} else {
		s.Duplicates++
	}
}
