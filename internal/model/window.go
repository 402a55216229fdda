package model

import "time"

// Window is a closed time interval [Start, End].
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ContainsUnix checks whole seconds, so sub-second parts of the bounds are ignored.
func (w Window) ContainsUnix(sec int64) bool {
	return sec >= w.Start.Unix() && sec <= w.End.Unix()
}
