package circulation

import (
	"time"

	"libracatalog/internal/catalog"
)

// DetectOverdue returns the Loaned items whose loan is at least thresholdDays
// whole days old at now, in collection order. Items without a parsed loan
// date are skipped.
func DetectOverdue(items []catalog.Item, thresholdDays int, now time.Time) []OverdueLoan {
	overdue := make([]OverdueLoan, 0)
	for _, item := range items {
		if !item.IsLoaned() || item.LoanDate.IsZero() {
			continue
		}
		days := ElapsedDays(item.LoanDate, now)
		if days >= thresholdDays {
			overdue = append(overdue, OverdueLoan{Item: item.Clone(), DaysElapsed: days})
		}
	}
	return overdue
}

// ElapsedDays is the number of whole 24-hour periods between from and to.
// A from in the future yields a negative count.
func ElapsedDays(from, to time.Time) int {
	d := to.Sub(from)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
