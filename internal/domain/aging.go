package domain

import (
	"math"
	"time"
)

// AgingBucket labels a days-overdue band.
type AgingBucket string

const (
	AgingCurrent    AgingBucket = "current"
	Aging31To60     AgingBucket = "31-60"
	Aging61To90     AgingBucket = "61-90"
	AgingOver90     AgingBucket = "90+"
	agingDayLength              = 24 * time.Hour
	agingCurrentMax             = 30
)

// AgingBuckets lists the bands in display order.
var AgingBuckets = []AgingBucket{AgingCurrent, Aging31To60, Aging61To90, AgingOver90}

// DaysOverdue returns whole days between due and asOf, negative when not yet due.
func DaysOverdue(due, asOf time.Time) int {
	return int(math.Floor(asOf.Sub(due).Hours() / agingDayLength.Hours()))
}

// BucketFor places a days-overdue count into exactly one band.
// Anything up to 30 days, including items not yet due, is current.
func BucketFor(daysOverdue int) AgingBucket {
	switch {
	case daysOverdue <= agingCurrentMax:
		return AgingCurrent
	case daysOverdue <= 60:
		return Aging31To60
	case daysOverdue <= 90:
		return Aging61To90
	default:
		return AgingOver90
	}
}
