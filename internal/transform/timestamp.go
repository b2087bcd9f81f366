package transform

import (
	"database/sql"
	"strings"
	"time"
)

var (
	dateLayouts     = []string{"2006-01-02", time.RFC3339Nano, "2006-01-02 15:04:05"}
	timeOfDayLayout = []string{"15:04:05", "15:04:05.999999"}
)

// ObservationTime combines the legacy observation date and UT time columns
// into one UTC instant. A missing time means midnight. Drivers that return the
// date as a full timestamp are accepted; its clock part is then replaced by ut.
func ObservationTime(date, ut sql.NullString) (time.Time, error) {
	ds := strings.TrimSpace(date.String)
	if !date.Valid || ds == "" {
		return time.Time{}, malformed("observation date is missing")
	}

	var day time.Time
	var err error
	for _, layout := range dateLayouts {
		if day, err = time.Parse(layout, ds); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, malformed("observation date %q", ds)
	}
	day = day.UTC()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	us := strings.TrimSpace(ut.String)
	if !ut.Valid || us == "" {
		return day, nil
	}
	var clock time.Time
	for _, layout := range timeOfDayLayout {
		if clock, err = time.Parse(layout, us); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, malformed("observation time %q", us)
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour +
		time.Duration(clock.Minute())*time.Minute +
		time.Duration(clock.Second())*time.Second +
		time.Duration(clock.Nanosecond())), nil
}
