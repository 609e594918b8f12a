package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is the exchange's timezone, archive dates are trading days there.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Moscow")
	if err != nil {
		panic(err)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}

// DateOf returns the exchange calendar date of t as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.In(Location).Format(time.DateOnly)
}

// Today is DateOf(Now()).
func Today() string {
	return DateOf(Now())
}
