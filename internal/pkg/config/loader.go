// Package config reads environment-driven settings for the relaypool
// binaries. Loading is fail-open: an unset variable takes the default and an
// unusable one falls back to the default with a warning, so a typo in a
// deployment manifest degrades the pool to defaults instead of keeping the
// worker from starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Result carries a loaded value together with the fallback note emitted when
// the environment held something unusable. Warning is empty unless Fellback
// is set.
type Result[T any] struct {
	Value    T
	Warning  string
	Fellback bool
}

func fallback[T any](key, raw string, def T, err error) Result[T] {
	return Result[T]{
		Value:    def,
		Warning:  fmt.Sprintf("%s=%q is not usable (%v), keeping default %v", key, raw, err, def),
		Fellback: true,
	}
}

// String reads a plain string variable. Empty and unset both mean "use the
// default"; no validation is applied.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Validated reads a string variable and checks it with validate. A value that
// fails validation falls back to the default.
func Validated(key, def string, validate func(string) error) Result[string] {
	raw := os.Getenv(key)
	if raw == "" {
		return Result[string]{Value: def}
	}
	if validate != nil {
		if err := validate(raw); err != nil {
			return fallback(key, raw, def, err)
		}
	}
	return Result[string]{Value: raw}
}

// Duration reads a Go duration string ("30s", "5m"). validate may be nil.
func Duration(key string, def time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	raw := os.Getenv(key)
	if raw == "" {
		return Result[time.Duration]{Value: def}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback(key, raw, def, err)
	}
	if validate != nil {
		if err := validate(d); err != nil {
			return fallback(key, raw, def, err)
		}
	}
	return Result[time.Duration]{Value: d}
}

// Int reads an integer variable. validate may be nil.
func Int(key string, def int, validate func(int) error) Result[int] {
	raw := os.Getenv(key)
	if raw == "" {
		return Result[int]{Value: def}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback(key, raw, def, err)
	}
	if validate != nil {
		if err := validate(n); err != nil {
			return fallback(key, raw, def, err)
		}
	}
	return Result[int]{Value: n}
}

// Bool reads a boolean variable in strconv.ParseBool syntax ("1", "true",
// "FALSE", ...).
func Bool(key string, def bool) Result[bool] {
	raw := os.Getenv(key)
	if raw == "" {
		return Result[bool]{Value: def}
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(key, raw, def, err)
	}
	return Result[bool]{Value: b}
}
