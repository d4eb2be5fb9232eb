package backup

import (
	"fmt"
	"sort"
	"time"
)

// RetentionPolicy holds counts of calendar periods to retain for the
// automatic lineage. The first (oldest) backup of every year is always kept.
type RetentionPolicy struct {
	DailyKeep   int `yaml:"daily_keep"`
	WeeklyKeep  int `yaml:"weekly_keep"`
	MonthlyKeep int `yaml:"monthly_keep"`
}

// DefaultRetentionPolicy returns the stock 7/4/12 policy.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{DailyKeep: 7, WeeklyKeep: 4, MonthlyKeep: 12}
}

// Expired selects the backups of one lineage that the policy no longer
// retains. Periods use the calendar day, ISO week, calendar month and
// calendar year of the backup's creation time; the oldest backup of each of
// the most recent N distinct periods is retained. The selection depends only
// on the input set, so pruning is monotonic: a second run on the survivors
// removes nothing.
func (p RetentionPolicy) Expired(lineage []Backup) []Backup {
	asc := make([]Backup, len(lineage))
	copy(asc, lineage)
	sort.Slice(asc, func(i, j int) bool { return asc[i].CreatedAt.Before(asc[j].CreatedAt) })

	keep := make(map[string]bool)
	markOldestPerPeriod(asc, keep, dayKey, p.DailyKeep)
	markOldestPerPeriod(asc, keep, weekKey, p.WeeklyKeep)
	markOldestPerPeriod(asc, keep, monthKey, p.MonthlyKeep)
	markOldestPerPeriod(asc, keep, yearKey, -1)

	var expired []Backup
	for _, b := range asc {
		if !keep[b.ID] {
			expired = append(expired, b)
		}
	}
	return expired
}

// markOldestPerPeriod keeps the oldest backup of each of the most recent n
// distinct periods. n < 0 means every period.
func markOldestPerPeriod(asc []Backup, keep map[string]bool, key func(time.Time) string, n int) {
	if n == 0 {
		return
	}

	oldest := make(map[string]string) // period -> backup ID
	var periods []string
	for _, b := range asc {
		k := key(b.CreatedAt)
		if _, seen := oldest[k]; !seen {
			oldest[k] = b.ID
			periods = append(periods, k)
		}
	}

	if n > 0 && len(periods) > n {
		periods = periods[len(periods)-n:]
	}
	for _, k := range periods {
		keep[oldest[k]] = true
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func yearKey(t time.Time) string {
	return t.UTC().Format("2006")
}
