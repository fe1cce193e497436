package config

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

// LoadCatalog reads a CSV machine catalog. The expected header is
// name,capacity,variableCost,fixedCost; extra columns are ignored.
func LoadCatalog(path string) ([]MachineSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open machine catalog: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse machine catalog %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("machine catalog %s has no data rows", path)
	}

	specs := make([]MachineSpec, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 4 {
			return nil, fmt.Errorf("machine catalog %s row %d: expected 4 columns, got %d", path, i+2, len(record))
		}
		capacity, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("machine catalog %s row %d: bad capacity: %w", path, i+2, err)
		}
		variableCost, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("machine catalog %s row %d: bad variable cost: %w", path, i+2, err)
		}
		fixedCost, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("machine catalog %s row %d: bad fixed cost: %w", path, i+2, err)
		}
		specs = append(specs, MachineSpec{
			Name:         record[0],
			Capacity:     capacity,
			VariableCost: variableCost,
			FixedCost:    fixedCost,
		})
	}
	return specs, nil
}

// SelectMachines picks catalog rows per the catalog configuration: explicit
// indices when given, otherwise a seeded random draw of Count rows so runs
// remain reproducible.
func SelectMachines(catalog []MachineSpec, cfg CatalogConfig) ([]MachineSpec, error) {
	if len(cfg.Indices) > 0 {
		selected := make([]MachineSpec, 0, len(cfg.Indices))
		for _, index := range cfg.Indices {
			if index < 0 || index >= len(catalog) {
				return nil, fmt.Errorf("catalog index %d out of range (%d rows)", index, len(catalog))
			}
			selected = append(selected, catalog[index])
		}
		return selected, nil
	}

	count := cfg.Count
	if count <= 0 || count > len(catalog) {
		count = len(catalog)
	}
	shuffled := make([]MachineSpec, len(catalog))
	copy(shuffled, catalog)
	rng := rand.New(rand.NewSource(cfg.Seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count], nil
}
