package results

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// sqlTime scans an aggregated timestamp. MySQL returns MIN/MAX of a DATETIME
// as a time, SQLite returns the stored text because the result column has no
// declared type.
type sqlTime struct {
	time.Time
}

func (t *sqlTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", value)
	}
}

func (t *sqlTime) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
