package paginate

import (
	"errors"
	"fmt"
)

// ErrCursorStalled means the provider returned a page that would not move the
// cursor forward; following it would loop forever.
var ErrCursorStalled = errors.New("cursor did not advance")

// TimeCursor walks [Next, End) in milliseconds.
type TimeCursor struct {
	Next int64
	End  int64
}

func NewTimeCursor(startMs, endMs int64) *TimeCursor {
	return &TimeCursor{Next: startMs, End: endMs}
}

func (c *TimeCursor) Done() bool {
	return c.Next >= c.End
}

// Advance moves past the last record of a page.
func (c *TimeCursor) Advance(lastOpenTime int64) error {
	next := lastOpenTime + 1
	if next <= c.Next {
		return fmt.Errorf("%w: last record %d, cursor %d", ErrCursorStalled, lastOpenTime, c.Next)
	}
	c.Next = next
	return nil
}
