package ledger

import (
	"slices"
	"strings"
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
)

// DisplayLayout is how record timestamps are rendered and searched.
const DisplayLayout = "02 Jan 2006, 03:04 PM"

// FilterCustomers keeps customers whose name or town contains query
// (case-insensitive), newest first. An empty query keeps everyone.
func FilterCustomers(list []models.Customer, query string) []models.Customer {
	q := strings.ToLower(strings.TrimSpace(query))
	out := slices.DeleteFunc(slices.Clone(list), func(c models.Customer) bool {
		return q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Town), q)
	})
	sortNewestFirst(out, func(c models.Customer) int64 { return c.Time })
	return out
}

// FilterEntries keeps entries whose displayed date or jewellery label
// contains query, newest first.
func FilterEntries(list []models.Entry, query string, loc *time.Location) []models.Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := slices.DeleteFunc(slices.Clone(list), func(e models.Entry) bool {
		return q != "" &&
			!strings.Contains(strings.ToLower(formatTime(e.Time, loc)), q) &&
			!strings.Contains(strings.ToLower(e.Jewellery), q)
	})
	sortNewestFirst(out, func(e models.Entry) int64 { return e.Time })
	return out
}

// FilterSubEntries keeps sub-entries whose displayed date contains query, newest first.
func FilterSubEntries(list []models.SubEntry, query string, loc *time.Location) []models.SubEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := slices.DeleteFunc(slices.Clone(list), func(se models.SubEntry) bool {
		return q != "" && !strings.Contains(strings.ToLower(formatTime(se.Time, loc)), q)
	})
	sortNewestFirst(out, func(se models.SubEntry) int64 { return se.Time })
	return out
}

func formatTime(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return models.TimeOf(ms).In(loc).Format(DisplayLayout)
}

func sortNewestFirst[T any](list []T, at func(T) int64) {
	slices.SortStableFunc(list, func(a, b T) int {
		switch ta, tb := at(a), at(b); {
		case ta > tb:
			return -1
		case ta < tb:
			return 1
		}
		return 0
	})
}
