package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tunogya/salesfactor/pkg/model"
)

// Required sales CSV columns. num_sold may be absent for the test partition.
var salesColumns = []string{"id", "date", "country", "store", "product"}

// CSVProvider implements ObservationProvider for sales CSV files
type CSVProvider struct {
	filePath string
	isTest   bool
	rows     []model.Observation
	loaded   bool
}

// NewCSVProvider creates a new CSV-based sales provider. Every row read
// from the file is tagged with isTest.
func NewCSVProvider(filePath string, isTest bool) *CSVProvider {
	return &CSVProvider{
		filePath: filePath,
		isTest:   isTest,
		rows:     make([]model.Observation, 0),
		loaded:   false,
	}
}

// loadIfNeeded loads the CSV file if not already loaded
func (p *CSVProvider) loadIfNeeded() error {
	if p.loaded {
		return nil
	}

	file, err := os.Open(p.filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := ReadSales(file, p.isTest)
	if err != nil {
		return fmt.Errorf("%s: %w", p.filePath, err)
	}

	p.rows = rows
	p.loaded = true
	return nil
}

// FetchObservations returns all rows of the file
func (p *CSVProvider) FetchObservations(ctx context.Context) ([]model.Observation, error) {
	if err := p.loadIfNeeded(); err != nil {
		return nil, err
	}
	out := make([]model.Observation, len(p.rows))
	copy(out, p.rows)
	return out, nil
}

// ReadSales parses a sales CSV stream. A malformed row aborts the read,
// since the decomposition needs the full grid.
func ReadSales(r io.Reader, isTest bool) ([]model.Observation, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}
	for _, col := range salesColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var rows []model.Observation
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record at line %d: %w", line, err)
		}

		o, err := parseSalesRecord(record, colMap)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		o.IsTest = isTest
		rows = append(rows, o)
	}

	return rows, nil
}

// parseSalesRecord parses a CSV record into an Observation
func parseSalesRecord(record []string, colMap map[string]int) (model.Observation, error) {
	getValue := func(name string) string {
		if idx, ok := colMap[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	id, err := strconv.ParseInt(getValue("id"), 10, 64)
	if err != nil {
		return model.Observation{}, fmt.Errorf("invalid id: %w", err)
	}

	date, err := time.Parse(time.DateOnly, getValue("date"))
	if err != nil {
		return model.Observation{}, fmt.Errorf("invalid date: %w", err)
	}

	numSold := math.NaN()
	if raw := getValue("num_sold"); raw != "" {
		numSold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Observation{}, fmt.Errorf("invalid num_sold: %w", err)
		}
		if numSold < 0 {
			return model.Observation{}, fmt.Errorf("negative num_sold %v", numSold)
		}
	}

	return model.Observation{
		ID:      id,
		Date:    date,
		Country: getValue("country"),
		Store:   getValue("store"),
		Product: getValue("product"),
		NumSold: numSold,
	}, nil
}

// MemoryProvider implements ObservationProvider with in-memory storage
type MemoryProvider struct {
	rows []model.Observation
}

// NewMemoryProvider creates a new in-memory provider
func NewMemoryProvider(rows []model.Observation) *MemoryProvider {
	return &MemoryProvider{
		rows: rows,
	}
}

// AddObservations adds rows to the provider
func (p *MemoryProvider) AddObservations(rows []model.Observation) {
	p.rows = append(p.rows, rows...)
}

// FetchObservations returns a copy of the stored rows
func (p *MemoryProvider) FetchObservations(ctx context.Context) ([]model.Observation, error) {
	out := make([]model.Observation, len(p.rows))
	copy(out, p.rows)
	return out, nil
}
