// Package billing converts wall-clock elapsed time into billable amounts.
//
// Redmine stores spent time as decimal hours. Punchcard bills in quarter-hour
// increments: any started quarter is charged in full, so a one-minute task
// books as 0.25 hours. An elapsed time that is already an exact multiple of
// fifteen minutes is not rounded further, and a timer that never ran bills
// nothing at all.
package billing

import (
	"fmt"
	"time"
)

const (
	hour    = time.Hour
	quarter = 15 * time.Minute
)

// Quantize converts elapsed time into a decimal-hours string in quarter-hour
// steps, e.g. "0.25", "1.50", "2.00". Partial quarters round up. When the
// remainder past the last full hour rounds up to four quarters the amount
// carries into the next hour. Negative input is treated as zero.
func Quantize(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	hours := int64(elapsed / hour)
	rem := elapsed % hour
	quarters := int64((rem + quarter - 1) / quarter)
	if quarters == 4 {
		hours++
		quarters = 0
	}
	return fmt.Sprintf("%d.%02d", hours, quarters*25)
}

// QuantizeMillis is Quantize for an elapsed time expressed in milliseconds
// since timer start, the unit persisted inside session state.
func QuantizeMillis(elapsedMs int64) string {
	return Quantize(time.Duration(elapsedMs) * time.Millisecond)
}

// FormatClock renders elapsed time as a running-timer display, H:MM:SS.
func FormatClock(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	total := int64(elapsed / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
