package indexation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INDEX TABLE - Published VPI readings, keyed by calendar month or year
// =============================================================================
// The table is fixed lookup data: this system does not ingest CPI series.
// A dataset (Destatis VPI, base 2020 = 100) ships embedded in the binary;
// deployments point -index-table at a newer JSON file when Destatis
// publishes fresh readings.

//go:embed data/vpi_2020_100.json
var embeddedTable []byte

// IndexTable maps calendar keys to published VPI values. Immutable
// after construction; safe for concurrent readers.
type IndexTable struct {
	months map[string]decimal.Decimal // "MM/YYYY" -> reading
	years  map[string]decimal.Decimal // "YYYY"    -> yearly average
}

// tableFile is the on-disk/embedded JSON shape. Values are strings so
// readings survive the round trip without float drift.
type tableFile struct {
	Base   string            `json:"base"`
	Months map[string]string `json:"months"`
	Years  map[string]string `json:"years"`
}

var (
	defaultTable     *IndexTable
	defaultTableOnce sync.Once
)

// DefaultTable returns the embedded VPI dataset. Panics only if the
// embedded data is corrupt, which is a build defect.
func DefaultTable() *IndexTable {
	defaultTableOnce.Do(func() {
		t, err := parseTable(embeddedTable)
		if err != nil {
			panic(fmt.Sprintf("embedded index table invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// LoadTable reads an index table from a JSON file.
func LoadTable(path string) (*IndexTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index table: %w", err)
	}
	return parseTable(raw)
}

func parseTable(raw []byte) (*IndexTable, error) {
	var file tableFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse index table: %w", err)
	}

	t := &IndexTable{
		months: make(map[string]decimal.Decimal, len(file.Months)),
		years:  make(map[string]decimal.Decimal, len(file.Years)),
	}
	for key, value := range file.Months {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("index table month %q: %w", key, err)
		}
		t.months[key] = d
	}
	for key, value := range file.Years {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("index table year %q: %w", key, err)
		}
		t.years[key] = d
	}
	return t, nil
}

// Month resolves a "MM/YYYY" key to its published reading.
func (t *IndexTable) Month(key string) (decimal.Decimal, bool) {
	d, ok := t.months[key]
	return d, ok
}

// Year resolves a "YYYY" key to its published yearly average.
func (t *IndexTable) Year(key string) (decimal.Decimal, bool) {
	d, ok := t.years[key]
	return d, ok
}

// =============================================================================
// READ-ONLY VIEWS - For the operator UI
// =============================================================================

// IndexEntry is one published reading, for listing endpoints.
type IndexEntry struct {
	Key   string          `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// MonthEntries returns all monthly readings sorted chronologically.
func (t *IndexTable) MonthEntries() []IndexEntry {
	entries := make([]IndexEntry, 0, len(t.months))
	for key, value := range t.months {
		entries = append(entries, IndexEntry{Key: key, Value: value})
	}
	// "MM/YYYY" sorts chronologically as (year, month).
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a[3:] != b[3:] {
			return a[3:] < b[3:]
		}
		return a[:2] < b[:2]
	})
	return entries
}

// YearEntries returns all yearly averages sorted chronologically.
func (t *IndexTable) YearEntries() []IndexEntry {
	entries := make([]IndexEntry, 0, len(t.years))
	for key, value := range t.years {
		entries = append(entries, IndexEntry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
