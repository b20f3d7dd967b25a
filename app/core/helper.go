package core

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	MaxUploadSize = 10 << 20
	DayLayout     = "2006-01-02"
)

// DayLocation is the timezone of the date_from/date_to day filters.
var DayLocation = time.Local

// SetDayLocation switches the day filters to the named zone (server.timezone).
// An empty name keeps the zone of the host.
func SetDayLocation(name string) error {
	if name == "" {
		DayLocation = time.Local
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	DayLocation = loc
	return nil
}

// ParseDay returns midnight of a YYYY-MM-DD day in DayLocation.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, value, DayLocation)
}

// ParseDayEnd returns the start of the day after value, an exclusive upper
// bound covering the whole day.
func ParseDayEnd(value string) (time.Time, error) {
	t, err := ParseDay(value)
	if err != nil {
		return t, err
	}
	return t.AddDate(0, 0, 1), nil
}

// ReadUploadedFile returns the content and name of the multipart file field.
// Files larger than MaxUploadSize are rejected.
func ReadUploadedFile(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, "", fmt.Errorf("parsing upload: %w", err)
	}
	file, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("field %q: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxUploadSize {
		return nil, "", fmt.Errorf("%s is larger than %d bytes", hdr.Filename, MaxUploadSize)
	}
	Logger.Debug("uploaded file", zap.String("file", hdr.Filename), zap.Int("length", len(data)))
	return data, hdr.Filename, nil
}
