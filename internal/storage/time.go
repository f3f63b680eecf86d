package storage

import (
	"encoding/json"
	"math"
	"time"
)

// Time is a JSON encoded unix timestamp in seconds.
type Time int64

// Now returns the current time.
func Now() Time {
	return ToTime(time.Now())
}

// AsTime returns the time as UTC so its string value doesn't depend on the local time zone.
func (t Time) AsTime() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// IsZero reports whether the timestamp is unset.
func (t Time) IsZero() bool {
	return t == 0
}

// ToTime converts a time.Time to a storage.Time. The zero time maps to 0.
func ToTime(v time.Time) Time {
	if v.IsZero() {
		return 0
	}
	return Time(v.Unix())
}

// UnmarshalJSON decodes JSON numbers as unix timestamps, rounding fractional seconds.
func (t *Time) UnmarshalJSON(b []byte) error {
	var i int64
	if err := json.Unmarshal(b, &i); err == nil {
		*t = Time(i)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*t = Time(int64(math.Round(f)))
	return nil
}

// Before reports whether t is before u.
func (t Time) Before(u Time) bool {
	return t < u
}

// After reports whether t is after u.
func (t Time) After(u Time) bool {
	return t > u
}
