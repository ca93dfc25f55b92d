// Package holiday provides the public-holiday calendar the decomposition
// engine consults. Calendars are keyed by locale code (e.g. "FI"), which
// is not necessarily the country label used in the sales table.
package holiday

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/tunogya/salesfactor/pkg/model"
)

// Calendar answers which dates are public holidays
type Calendar interface {
	// Holidays returns the holiday dates of locale within years, sorted
	Holidays(ctx context.Context, locale string, years []int) ([]time.Time, error)
}

// StaticCalendar is an in-memory calendar of explicit dates per locale
type StaticCalendar struct {
	days map[string][]time.Time
}

// NewStaticCalendar creates an empty calendar
func NewStaticCalendar() *StaticCalendar {
	return &StaticCalendar{days: make(map[string][]time.Time)}
}

// Add registers holiday dates for a locale
func (c *StaticCalendar) Add(locale string, dates ...time.Time) {
	for _, d := range dates {
		c.days[locale] = append(c.days[locale], model.CivilDate(d))
	}
}

// Locales returns the locales with at least one date, sorted
func (c *StaticCalendar) Locales() []string {
	out := make([]string, 0, len(c.days))
	for l := range c.days {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Holidays implements Calendar. An unknown locale yields no dates.
func (c *StaticCalendar) Holidays(ctx context.Context, locale string, years []int) ([]time.Time, error) {
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}

	var out []time.Time
	seen := make(map[string]bool)
	for _, d := range c.days[locale] {
		if len(want) > 0 && !want[d.Year()] {
			continue
		}
		key := model.DayKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// calendarFile is the YAML layout:
//
//	holidays:
//	  FI:
//	    - 2015-01-01
//	    - 2015-12-06
type calendarFile struct {
	Holidays map[string][]string `yaml:"holidays"`
}

// LoadCalendarFile reads a StaticCalendar from YAML
func LoadCalendarFile(path string) (*StaticCalendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday file: %w", err)
	}
	return ParseCalendar(raw)
}

// ParseCalendar decodes the YAML calendar layout
func ParseCalendar(raw []byte) (*StaticCalendar, error) {
	var f calendarFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse holiday calendar: %w", err)
	}

	cal := NewStaticCalendar()
	for locale, dates := range f.Holidays {
		for _, s := range dates {
			d, err := time.Parse(time.DateOnly, s)
			if err != nil {
				return nil, fmt.Errorf("locale %s: invalid date %q: %w", locale, s, err)
			}
			cal.Add(locale, d)
		}
	}
	return cal, nil
}
