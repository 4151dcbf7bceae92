package sqlite

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// dateLayout has a fixed width so stored values sort chronologically as text.
const dateLayout = "2006-01-02T15:04:05.000Z07:00"

// date stores a time.Time as UTC text with millisecond precision.
type date time.Time

func (d date) Value() (driver.Value, error) {
	return time.Time(d).UTC().Format(dateLayout), nil
}

func (d *date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = date(time.Time{})
	case string:
		t, err := parseDate(v)
		if err != nil {
			return err
		}
		*d = date(t)
	case []byte:
		t, err := parseDate(string(v))
		if err != nil {
			return err
		}
		*d = date(t)
	case time.Time:
		*d = date(v.UTC())
	default:
		return fmt.Errorf("cannot scan type %T into date", value)
	}

	return nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.DateTime, s)
		if err != nil {
			return time.Time{}, err
		}
	}

	return t.UTC(), nil
}

func (d date) Time() time.Time {
	return time.Time(d)
}
