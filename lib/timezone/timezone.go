package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("US/Pacific")
	if err != nil {
		panic(err)
	}
}

// force timestamps into pacific time because the servers sometimes
// end up in other regions, which disturbs anything grouping rows
// by <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}

// the layout every persisted timestamp uses, old rows included
const Layout = "2006-01-02 15:04:05"

func Format(t time.Time) string {
	return t.In(Location).Format(Layout)
}

func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, Location)
}
