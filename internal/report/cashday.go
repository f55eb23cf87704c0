package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// businessCutoffHour splits night shifts. A venue closing its till at 01:30
// is still settling the previous evening, so instants before the cutoff
// belong to the prior business date. No venue operates at 06:00.
const businessCutoffHour = 6

// BusinessDate maps an instant to its business date (YYYY-MM-DD) in the
// venue's timezone, applying the night-shift cutoff.
func BusinessDate(at time.Time, loc *time.Location) string {
	local := at.In(loc)
	if local.Hour() < businessCutoffHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format("2006-01-02")
}

// businessDayBounds returns the half-open instant range [from, to) covering a
// business date, aligned to the same cutoff: 06:00 of the date through 06:00
// of the next day.
func businessDayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from := day.Add(businessCutoffHour * time.Hour)
	return from, from.AddDate(0, 0, 1), nil
}

// expenseVoucher derives a human-readable receipt number from the expense's
// identity and timestamp: EXP-YYYYMMDD-HHMMSS-XXXX.
func expenseVoucher(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("EXP-%s-%s", at.Format("20060102-150405"), strings.ToUpper(id.String()[:4]))
}
