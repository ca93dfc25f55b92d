package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/tunogya/salesfactor/pkg/decompose"
	"github.com/tunogya/salesfactor/pkg/model"
)

// Generates a dense synthetic sales grid for the default engine
// configuration: train.csv, test.csv, gdp.csv and holidays.yaml.
func main() {
	outDir := flag.String("out", "data", "Output directory")
	split := flag.String("split", "2017-01-01", "First test date")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	cfg := decompose.DefaultConfig()
	first := time.Date(cfg.Years[0], 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(cfg.Years[len(cfg.Years)-1], 12, 31, 0, 0, 0, 0, time.UTC)
	testFrom, err := time.Parse(time.DateOnly, *split)
	if err != nil {
		log.Fatalf("Invalid -split: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	gdp := make(map[string]map[int]float64)
	for i, c := range cfg.Countries {
		gdp[c] = make(map[int]float64)
		level := 10000 * float64(i+1)
		for _, y := range cfg.Years {
			level *= 1 + 0.02 + 0.04*rng.Float64()
			gdp[c][y] = math.Round(level*100) / 100
		}
	}

	holidays := make(map[string][]string)
	for _, c := range cfg.Countries {
		locale := cfg.HolidayLocales[c]
		for _, y := range cfg.Years {
			for _, md := range [][2]int{{1, 1}, {5, 1}, {12, 25}, {12, 26}} {
				holidays[locale] = append(holidays[locale], model.DayKey(time.Date(y, time.Month(md[0]), md[1], 0, 0, 0, 0, time.UTC)))
			}
		}
	}

	train, err := newSalesWriter(filepath.Join(*outDir, "train.csv"), true)
	if err != nil {
		log.Fatal(err)
	}
	test, err := newSalesWriter(filepath.Join(*outDir, "test.csv"), false)
	if err != nil {
		log.Fatal(err)
	}

	weekday := [7]float64{0.92, 0.93, 0.94, 0.96, 1.0, 1.12, 1.13}
	id := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		t := float64(d.YearDay()-1) / 365
		season := 1 + 0.15*math.Cos(2*math.Pi*t)
		for _, c := range cfg.Countries {
			for si, s := range cfg.Stores {
				for pi, p := range cfg.Products {
					share := 0.2 + 0.05*math.Sin(2*math.Pi*(t+float64(pi)/5))
					mean := gdp[c][d.Year()] / 1000 * float64(3-si) * share * season * weekday[(int(d.Weekday())+6)%7]
					sold := math.Max(0, math.Round(mean*(1+0.05*rng.NormFloat64())))

					row := []string{strconv.Itoa(id), model.DayKey(d), c, s, p}
					w := train
					if !d.Before(testFrom) {
						w = test
					} else {
						row = append(row, strconv.FormatFloat(sold, 'f', 0, 64))
					}
					if err := w.Write(row); err != nil {
						log.Fatalf("Failed to write row %d: %v", id, err)
					}
					id++
				}
			}
		}
	}
	for _, w := range []*csv.Writer{train, test} {
		w.Flush()
		if err := w.Error(); err != nil {
			log.Fatalf("Failed to flush CSV: %v", err)
		}
	}

	if err := writeGDP(filepath.Join(*outDir, "gdp.csv"), cfg, gdp); err != nil {
		log.Fatal(err)
	}

	raw, err := yaml.Marshal(map[string]any{"holidays": holidays})
	if err != nil {
		log.Fatalf("Failed to encode holidays: %v", err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "holidays.yaml"), raw, 0644); err != nil {
		log.Fatalf("Failed to write holidays: %v", err)
	}

	log.Printf("Wrote %d rows to %s", id, *outDir)
}

func newSalesWriter(path string, withSales bool) (*csv.Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	header := []string{"id", "date", "country", "store", "product"}
	if withSales {
		header = append(header, "num_sold")
	}
	return w, w.Write(header)
}

func writeGDP(path string, cfg decompose.Config, gdp map[string]map[int]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"country"}
	for _, y := range cfg.Years {
		header = append(header, strconv.Itoa(y))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range cfg.Countries {
		row := []string{c}
		for _, y := range cfg.Years {
			row = append(row, strconv.FormatFloat(gdp[c][y], 'f', 2, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
