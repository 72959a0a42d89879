package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// marshalText converts v to JSON text for storage. Nil slices are stored
// as "[]" so reads never distinguish missing from empty.
func marshalText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

// unmarshalText converts stored JSON text back into dst.
func unmarshalText(s string, dst any) error {
	if s == "" || s == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("decode column: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
