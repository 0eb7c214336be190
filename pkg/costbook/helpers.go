package costbook

import (
	"database/sql"
	"strings"
	"time"
)

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	DateLayout,
}

// timeFromColumn converts a DATETIME column value into a time. The driver may
// hand back either time.Time or text depending on how the value was written.
func timeFromColumn(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		for _, layout := range sqliteTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed
			}
		}
	case []byte:
		return timeFromColumn(string(t))
	}
	return nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
