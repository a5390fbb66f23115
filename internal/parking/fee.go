package parking

// FeePolicy prices one completed occupancy from its duration in whole
// hours. Implementations must be pure.
type FeePolicy interface {
	Fee(durationHours int64) int64
}

// FlatRate charges Base credits per completed hour.
type FlatRate struct {
	Base int64
}

func (p FlatRate) Fee(durationHours int64) int64 {
	return durationHours * p.Base
}

// Tiered rewards long stays: 3 credits/hour under 10 hours, 2 up to 100
// hours, 1 beyond that.
type Tiered struct{}

func (Tiered) Fee(durationHours int64) int64 {
	switch {
	case durationHours < 10:
		return durationHours * 3
	case durationHours < 100:
		return durationHours * 2
	default:
		return durationHours
	}
}

// PeakRate doubles the flat rate while Peak is set.
type PeakRate struct {
	Base int64
	Peak bool
}

func (p PeakRate) Fee(durationHours int64) int64 {
	if p.Peak {
		return durationHours * p.Base * 2
	}
	return durationHours * p.Base
}

// HoursBetween floors the elapsed time to whole hours. A 59-minute stay
// bills as zero hours.
func HoursBetween(startMillis, endMillis int64) int64 {
	return (endMillis - startMillis) / millisPerHour
}
