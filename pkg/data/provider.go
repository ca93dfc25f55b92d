package data

import (
	"context"

	"github.com/tunogya/salesfactor/pkg/model"
)

// ObservationProvider supplies the raw sales grid
type ObservationProvider interface {
	// FetchObservations returns every row the provider holds, in file order
	FetchObservations(ctx context.Context) ([]model.Observation, error)
}

// GDPProvider answers the static country x year macro-economic lookup
type GDPProvider interface {
	// Lookup returns the GDP value for a country and year, and whether one exists
	Lookup(country string, year int) (float64, bool)
}

// Combine concatenates the rows of several providers, in order
func Combine(ctx context.Context, providers ...ObservationProvider) ([]model.Observation, error) {
	var rows []model.Observation
	for _, p := range providers {
		batch, err := p.FetchObservations(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}
