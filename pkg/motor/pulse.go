package motor

// ESC pulse widths in microseconds.
const (
	PulseMin     = 1000
	PulseNeutral = 1500
	PulseMax     = 2000
)

// PulseWidth maps a forward-only throttle percentage onto the
// neutral..max half of the ESC range.
func PulseWidth(percent int) int {
	percent = clamp(percent, 0, 100)
	us := PulseNeutral + percent*(PulseMax-PulseNeutral)/100
	return clamp(us, PulseMin, PulseMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
