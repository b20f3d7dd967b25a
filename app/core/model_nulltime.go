package core

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type NullTime struct {
	Time  time.Time
	Valid bool // Valid is true if Time is not NULL
}

var nullTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
}

func Now() NullTime {
	return NullTime{Time: time.Now(), Valid: true}
}

// ParseNullTime accepts the date formats sent by forms and spreadsheets,
// as well as unix seconds.
func ParseNullTime(s string) NullTime {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullTime{}
	}
	for _, layout := range nullTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NullTime{Time: t, Valid: true}
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NullTime{Time: time.Unix(i, 0), Valid: true}
	}
	return NullTime{}
}

func (u *NullTime) FromString(s string) {
	*u = ParseNullTime(s)
}

// Format returns an empty string for invalid times.
func (u NullTime) Format(layout string) string {
	if !u.Valid {
		return ""
	}
	return u.Time.Format(layout)
}

func (u *NullTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*u = NullTime{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = str
	}
	*u = ParseNullTime(s)
	return nil
}

func (u NullTime) MarshalJSON() ([]byte, error) {
	if !u.Valid {
		return []byte(`""`), nil
	}
	return json.Marshal(u.Time)
}

// Scan implements the Scanner interface.
func (u *NullTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = NullTime{}
	case time.Time:
		*u = NullTime{Time: v, Valid: true}
	case []byte:
		*u = ParseNullTime(string(v))
	case string:
		*u = ParseNullTime(v)
	default:
		*u = NullTime{}
	}
	return nil
}

// Value implements the driver Valuer interface.
func (u NullTime) Value() (driver.Value, error) {
	if !u.Valid {
		return nil, nil
	}
	return u.Time, nil
}
