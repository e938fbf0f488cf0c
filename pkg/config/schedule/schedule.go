package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/tauraamui/xerror"
)

const stLayout = "15:04:05"

// Time is a time of day as an offset from midnight.
type Time time.Duration

func ParseTime(value string) (Time, error) {
	nt, err := time.Parse(stLayout, value)
	if err != nil {
		return 0, xerror.Errorf("invalid time of day %q: %w", value, err)
	}
	return Time(sinceMidnight(nt)), nil
}

func MustParseTime(value string) *Time {
	t, err := ParseTime(value)
	if err != nil {
		panic(err)
	}
	return &t
}

func (st *Time) UnmarshalJSON(b []byte) error {
	t, err := ParseTime(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*st = t
	return nil
}

func (st Time) MarshalJSON() ([]byte, error) {
	return []byte(st.String()), nil
}

func (st Time) String() string {
	return fmt.Sprintf("%q", time.Time{}.Add(time.Duration(st)).Format(stLayout))
}

func (st Time) Before(u Time) bool { return st < u }

func (st Time) After(u Time) bool { return st > u }

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// OnOffTimes for loading up on off time entries
type OnOffTimes struct {
	Off *Time `json:"off,omitempty"`
	On  *Time `json:"on,omitempty"`
}

func (o OnOffTimes) empty() bool { return o.On == nil && o.Off == nil }

func (o OnOffTimes) isOn(t Time) bool {
	switch {
	case o.On != nil && o.Off != nil:
		if o.On.Before(*o.Off) {
			return !t.Before(*o.On) && t.Before(*o.Off)
		}
		// window wraps past midnight
		return !t.Before(*o.On) || t.Before(*o.Off)
	case o.On != nil:
		return !t.Before(*o.On)
	case o.Off != nil:
		return t.Before(*o.Off)
	}
	return true
}

type Week struct {
	Everyday  OnOffTimes `json:"everyday"`
	Monday    OnOffTimes `json:"monday"`
	Tuesday   OnOffTimes `json:"tuesday"`
	Wednesday OnOffTimes `json:"wednesday"`
	Thursday  OnOffTimes `json:"thursday"`
	Friday    OnOffTimes `json:"friday"`
	Saturday  OnOffTimes `json:"saturday"`
	Sunday    OnOffTimes `json:"sunday"`
}

func (w Week) day(d time.Weekday) OnOffTimes {
	days := map[time.Weekday]OnOffTimes{
		time.Monday:    w.Monday,
		time.Tuesday:   w.Tuesday,
		time.Wednesday: w.Wednesday,
		time.Thursday:  w.Thursday,
		time.Friday:    w.Friday,
		time.Saturday:  w.Saturday,
		time.Sunday:    w.Sunday,
	}
	if times := days[d]; !times.empty() {
		return times
	}
	return w.Everyday
}

// IsOn reports whether acquisition should run at t. A weekday entry
// overrides the everyday one, and a week with no entries is always on.
func (w Week) IsOn(t time.Time) bool {
	return w.day(t.Weekday()).isOn(Time(sinceMidnight(t)))
}
