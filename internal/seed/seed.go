// Package seed reads starter ledgers from TOML files.
//
//	[[record]]
//	description   = "Aluguel"
//	amount        = "1500.00"
//	kind          = "expense"
//	category      = "6"
//	date          = "2025-12-01"
//	recurring_day = 1
package seed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"carteira/internal/core"
)

type file struct {
	Records []entry `toml:"record"`
}

type entry struct {
	ID           string `toml:"id"`
	Description  string `toml:"description"`
	Amount       string `toml:"amount"`
	Kind         string `toml:"kind"`
	Category     string `toml:"category"`
	Date         string `toml:"date"`
	RecurringDay int    `toml:"recurring_day"`
}

// Load reads the seed file at path. A missing file yields no records.
// Entries without an id get "seed-<n>" based on their position.
func Load(path string, loc *time.Location) ([]core.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data, loc)
}

// Parse decodes seed records from TOML.
func Parse(data []byte, loc *time.Location) ([]core.Record, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]core.Record, 0, len(f.Records))
	seen := map[string]bool{}
	for i, e := range f.Records {
		r, err := e.record(i, loc)
		if err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i+1, err)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("seed record %d: duplicate id %q", i+1, r.ID)
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out, nil
}

func (e entry) record(i int, loc *time.Location) (core.Record, error) {
	amount, err := core.ParseMoney(e.Amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("amount %q: %w", e.Amount, err)
	}
	kind, err := core.ParseKind(e.Kind)
	if err != nil {
		return core.Record{}, err
	}
	on, err := core.ParseTimestamp(e.Date, loc)
	if err != nil {
		return core.Record{}, err
	}

	id := e.ID
	if id == "" {
		id = fmt.Sprintf("seed-%d", i+1)
	}
	r := core.Record{
		ID:          id,
		Description: e.Description,
		Amount:      amount,
		Kind:        kind,
		CategoryID:  e.Category,
		OccurredOn:  on,
	}
	if e.RecurringDay != 0 {
		r.Recurrence = &core.Recurrence{DayOfMonth: e.RecurringDay}
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	return r, nil
}
