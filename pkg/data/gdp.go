package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// GDPTable is a country x year matrix of positive macro-economic values
type GDPTable map[string]map[int]float64

// Lookup implements GDPProvider
func (g GDPTable) Lookup(country string, year int) (float64, bool) {
	years, ok := g[country]
	if !ok {
		return 0, false
	}
	v, ok := years[year]
	return v, ok
}

// Set stores a value, creating the country row as needed
func (g GDPTable) Set(country string, year int, value float64) {
	if g[country] == nil {
		g[country] = make(map[int]float64)
	}
	g[country][year] = value
}

// LoadGDPFile reads a GDP CSV from disk
func LoadGDPFile(path string) (GDPTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GDP file: %w", err)
	}
	defer file.Close()

	table, err := ReadGDP(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ReadGDP parses a matrix with a "country" column followed by one column
// per year:
//
//	country,2010,2011,...
//	Canada,47560.67,52223.70,...
func ReadGDP(r io.Reader) (GDPTable, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read GDP header: %w", err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "country" {
		return nil, fmt.Errorf("GDP header must start with \"country\" followed by years")
	}

	years := make([]int, len(header)-1)
	for i, col := range header[1:] {
		y, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil {
			return nil, fmt.Errorf("invalid year column %q: %w", col, err)
		}
		years[i] = y
	}

	table := make(GDPTable)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read GDP record at line %d: %w", line, err)
		}

		country := strings.TrimSpace(record[0])
		for i, raw := range record[1:] {
			if i >= len(years) {
				break
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue // missing cell surfaces as a missing reference later
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, year %d: invalid value: %w", line, years[i], err)
			}
			if v <= 0 {
				return nil, fmt.Errorf("line %d, year %d: GDP must be positive, got %v", line, years[i], v)
			}
			table.Set(country, years[i], v)
		}
	}

	return table, nil
}
