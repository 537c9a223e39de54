// Package timeparse turns free-text deadline and reminder phrases into
// absolute timestamps.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	dateparser "github.com/markusmobius/go-dateparser"
)

// Resolver parses three fast-path families directly and hands everything
// else to a multi-language parser configured to prefer future dates. A
// failed parse is reported as ok=false, never as an error: the caller asks
// the user again.
type Resolver struct {
	cfg *dateparser.Configuration
}

// New builds a resolver. languages are ISO codes for the fallback parser;
// empty means English, Ukrainian and Russian, matching the assistant's
// audience.
func New(languages ...string) *Resolver {
	if len(languages) == 0 {
		languages = []string{"en", "uk", "ru"}
	}
	return &Resolver{
		cfg: &dateparser.Configuration{
			Languages:           languages,
			PreferredDateSource: dateparser.Future,
		},
	}
}

var relativeRe = regexp.MustCompile(`(?i)^in\s+(\d+)\s+(hour|hr|min)`)

// Resolve parses text against the reference time ref.
//
// Families, tried in order:
//  1. "in N hours" / "in N minutes"  -> ref + N*unit
//  2. "MM.DD HH:MM"                  -> this year, rolled to next year if past
//  3. "HH:MM"                        -> today, rolled to tomorrow if past
//  4. anything the general parser understands, preferring the future
func (r *Resolver) Resolve(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		unit := time.Minute
		if strings.HasPrefix(strings.ToLower(m[2]), "h") {
			unit = time.Hour
		}
		return ref.Add(time.Duration(n) * unit), true
	}

	if t, err := time.ParseInLocation("01.02 15:04", text, ref.Location()); err == nil {
		t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location())
		if t.Before(ref) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}

	if t, err := time.ParseInLocation("15:04", text, ref.Location()); err == nil {
		t = time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location())
		if t.Before(ref) {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}

	return r.resolveFlexible(text, ref)
}

func (r *Resolver) resolveFlexible(text string, ref time.Time) (time.Time, bool) {
	cfg := *r.cfg
	cfg.CurrentTime = ref
	parsed, err := dateparser.Parse(&cfg, text)
	if err != nil || parsed.IsZero() {
		return time.Time{}, false
	}
	t := parsed.Time
	// Short inputs like "12.25" are day/month with no year; when that day
	// has already passed this year the user meant the next one.
	if t.Before(ref) && len(text) <= 5 {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}
