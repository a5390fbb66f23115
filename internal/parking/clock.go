package parking

import "time"

const millisPerHour = 60 * 60 * 1000

// Clock supplies the current time in Unix milliseconds. Transition
// boundaries sample it exactly once, so end times never precede the
// start time recorded for the same occupancy.
type Clock interface {
	Now() int64
}

type systemClock struct{}

func (systemClock) Now() int64 {
	return time.Now().UnixMilli()
}

// SystemClock returns the wall-clock implementation used in production.
func SystemClock() Clock {
	return systemClock{}
}
