package decompose

import (
	"errors"
	"fmt"

	"github.com/tunogya/salesfactor/pkg/model"
)

var (
	ErrMissingReference = errors.New("missing reference data")
	ErrUnknownLocale    = errors.New("unknown holiday locale")
	ErrStageOrder       = errors.New("stage applied out of order")
	ErrEmptyTable       = errors.New("empty table")
	ErrUnknownKey       = errors.New("unknown key")
)

// MissingReferenceError reports a (country, year) pair absent from the
// GDP reference
type MissingReferenceError struct {
	Country string
	Year    int
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("missing GDP reference for country %q, year %d", e.Country, e.Year)
}

func (e *MissingReferenceError) Is(target error) bool {
	return target == ErrMissingReference
}

// UnknownLocaleError reports a country with no holiday locale mapping
type UnknownLocaleError struct {
	Country string
}

func (e *UnknownLocaleError) Error() string {
	return fmt.Sprintf("no holiday locale configured for country %q", e.Country)
}

func (e *UnknownLocaleError) Is(target error) bool {
	return target == ErrUnknownLocale
}

func stageOrderError(stage, missing model.StageName) error {
	return fmt.Errorf("%w: %s requires %s", ErrStageOrder, stage, missing)
}
