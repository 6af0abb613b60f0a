package domain

import (
	"strings"
	"time"
)

// ISOTimestampLayout is the wire rendering of appointment datetimes:
// millisecond-precision UTC ISO-8601, e.g. "2022-04-04T08:00:00.000Z".
const ISOTimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	ReasonWeekend   = "weekend not allowed"
	ReasonDuplicate = "already has an appointment that day"
)

// BookingIdentity identifies the person requesting a slot.
type BookingIdentity struct {
	Name  string
	Email string
}

// BookingDecision is the outcome of ValidateBooking. Reason is set only
// when Valid is false.
type BookingDecision struct {
	Valid  bool
	Reason string
}

// FormatISOTimestamp renders t in the UTC ISO form used on the wire and by
// FilterByDay.
func FormatISOTimestamp(t time.Time) string {
	return t.UTC().Format(ISOTimestampLayout)
}

// FilterByDay keeps the appointments whose datetime, rendered as a UTC ISO
// timestamp, contains day as a substring. This is deliberately a textual
// match rather than a calendar range check: it is only correct when day is
// exactly the date portion of the UTC rendering (YYYY-MM-DD). Callers
// holding timestamps in other zones must normalize to UTC first or the
// filter will miss slots near midnight.
func FilterByDay(day string, appts []Appointment) []Appointment {
	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if strings.Contains(FormatISOTimestamp(a.Datetime), day) {
			out = append(out, a)
		}
	}
	return out
}

// ValidateBooking decides whether a slot at the given time may be booked by
// the given person. sameDay must already be narrowed to the candidate's
// calendar day (via FilterByDay); the duplicate rule only sees what it is
// handed. Rules run in a fixed order and the first failure wins.
func ValidateBooking(at time.Time, who BookingIdentity, sameDay []Appointment) BookingDecision {
	if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return BookingDecision{Reason: ReasonWeekend}
	}
	for _, a := range sameDay {
		if a.Email == who.Email || a.Name == who.Name {
			return BookingDecision{Reason: ReasonDuplicate}
		}
	}
	return BookingDecision{Valid: true}
}
