package decompose

import (
	"context"
	"fmt"

	"github.com/tunogya/salesfactor/pkg/model"
)

// TagHolidays sets holiday on public holidays of each row's country and
// holiday_response on the HolidayResponseDays days starting at each
// holiday. Every country of the table must map to a locale.
func (e *Engine) TagHolidays(ctx context.Context, t *model.Table) (*model.Table, error) {
	if err := checkStage(t, model.StageHoliday); err != nil {
		return nil, err
	}

	years := e.years(t)
	holidays := make(map[string]map[string]bool)
	responses := make(map[string]map[string]bool)
	for _, country := range t.Distinct(func(o *model.Observation) string { return o.Country }) {
		locale, ok := e.cfg.HolidayLocales[country]
		if !ok {
			return nil, &UnknownLocaleError{Country: country}
		}
		dates, err := e.calendar.Holidays(ctx, locale, years)
		if err != nil {
			return nil, fmt.Errorf("holidays for %s (%s): %w", country, locale, err)
		}

		days := make(map[string]bool, len(dates))
		window := make(map[string]bool, len(dates)*e.cfg.HolidayResponseDays)
		for _, d := range dates {
			days[model.DayKey(d)] = true
			for k := 0; k < e.cfg.HolidayResponseDays; k++ {
				window[model.DayKey(d.AddDate(0, 0, k))] = true
			}
		}
		holidays[country] = days
		responses[country] = window
	}

	return t.Derive(model.StageHoliday, "", func(_ int, o *model.Observation) {
		key := model.DayKey(o.Date)
		o.Holiday = holidays[o.Country][key]
		o.HolidayResponse = responses[o.Country][key]
	}), nil
}
