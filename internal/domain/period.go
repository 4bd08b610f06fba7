package domain

// Period is the simulated-time window of one trading period.
// Period numbers are 1-based; period p spans [(p-1)*d, p*d).
type Period struct {
	Number    int
	StartTime float64
	EndTime   float64
}

// NewPeriod returns the window for the given 1-based period number.
func NewPeriod(number int, duration float64) Period {
	return Period{
		Number:    number,
		StartTime: float64(number-1) * duration,
		EndTime:   float64(number) * duration,
	}
}

// Offset converts an absolute simulated time into time since period start.
func (p Period) Offset(t float64) float64 {
	return t - p.StartTime
}
