package constants

import "time"

// Wait durations. Config may override Implicit and PageLoad per environment.
const (
	ImplicitWait    = 10 * time.Second
	PageLoadTimeout = 30 * time.Second

	// ProbeTimeout bounds lookups of elements that may legitimately be absent,
	// such as error alerts after a successful login.
	ProbeTimeout = 2 * time.Second

	ScreenshotTimeout = 5 * time.Second
)

// Milliseconds converts a duration to the float milliseconds Playwright expects.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
