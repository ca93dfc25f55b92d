package decompose

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/tunogya/salesfactor/pkg/model"
)

// Config holds the immutable settings of an Engine
type Config struct {
	// Key sets. When empty, the engine derives them from the table.
	Countries []string `yaml:"countries" json:"countries"`
	Stores    []string `yaml:"stores" json:"stores"`
	Products  []string `yaml:"products" json:"products"`
	Years     []int    `yaml:"years" json:"years"`

	// Countries whose series are left out of the store, product and
	// weekday estimates
	ExcludedCountries []string `yaml:"excluded_countries" json:"excluded_countries"`

	// Days flagged after each holiday, the holiday itself included
	HolidayResponseDays int `yaml:"holiday_response_days" json:"holiday_response_days"`
	// Country label -> holiday calendar locale
	HolidayLocales map[string]string `yaml:"holiday_locales" json:"holiday_locales"`

	RidgeAlpha float64 `yaml:"ridge_alpha" json:"ridge_alpha"`
	// Most recent weeks of each country dropped before the weekday medians
	WeekdayTrailingWeeks int `yaml:"weekday_trailing_weeks" json:"weekday_trailing_weeks"`
	// Drop holiday_response rows from the day-of-year medians
	ExcludeHolidayResponseFromFit bool `yaml:"exclude_holiday_response_from_fit" json:"exclude_holiday_response_from_fit"`

	// Concurrent product regressions
	Workers int `yaml:"workers" json:"workers"`
}

// DefaultConfig returns the configuration of the sticker-sales grid
func DefaultConfig() Config {
	return Config{
		Countries: []string{"Canada", "Finland", "Italy", "Kenya", "Norway", "Singapore"},
		Stores:    []string{"Discount Stickers", "Stickers for Less", "Premium Sticker Mart"},
		Products:  []string{"Holographic Goose", "Kaggle", "Kaggle Tiers", "Kerneler", "Kerneler Dark Mode"},
		Years:     []int{2010, 2011, 2012, 2013, 2014, 2015, 2016, 2017, 2018, 2019},

		ExcludedCountries: []string{"Kenya", "Canada"},

		HolidayResponseDays: 5,
		HolidayLocales: map[string]string{
			"Canada":    "CA",
			"Finland":   "FI",
			"Italy":     "IT",
			"Kenya":     "KE",
			"Norway":    "NO",
			"Singapore": "SG",
		},

		RidgeAlpha:           0.1,
		WeekdayTrailingWeeks: 60,
		Workers:              4,
	}
}

// Validate checks value ranges
func (c Config) Validate() error {
	if c.RidgeAlpha <= 0 {
		return fmt.Errorf("ridge_alpha must be positive, got %v", c.RidgeAlpha)
	}
	if c.HolidayResponseDays < 1 {
		return fmt.Errorf("holiday_response_days must be at least 1, got %d", c.HolidayResponseDays)
	}
	if c.WeekdayTrailingWeeks < 0 {
		return fmt.Errorf("weekday_trailing_weeks must not be negative, got %d", c.WeekdayTrailingWeeks)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// clone deep-copies every slice and map so the engine's copy cannot be
// changed through the caller's
func (c Config) clone() Config {
	out := c
	out.Countries = slices.Clone(c.Countries)
	out.Stores = slices.Clone(c.Stores)
	out.Products = slices.Clone(c.Products)
	out.Years = slices.Clone(c.Years)
	out.ExcludedCountries = slices.Clone(c.ExcludedCountries)
	out.HolidayLocales = maps.Clone(c.HolidayLocales)
	return out
}

// Fingerprint is a short stable hash of the configuration
func (c Config) Fingerprint() string {
	raw, _ := json.Marshal(c) // map keys are emitted sorted
	return model.Fingerprint(string(raw))
}

func (c Config) excluded(country string) bool {
	return slices.Contains(c.ExcludedCountries, country)
}
