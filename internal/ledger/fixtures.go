package ledger

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML layout used to seed a ledger:
//
//	sales:
//	  - {id: s1, user_id: u1, platform: ebay, sale_date: 2024-03-02, selling_price: 10}
//	inventory_items:
//	  - {id: i1, user_id: u1, title: Jacket, purchase_date: 2024-01-10, purchase_price: 4}
type Fixtures struct {
	Sales     []Record `yaml:"sales"`
	Inventory []Record `yaml:"inventory_items"`
}

// Tables returns the fixtures keyed by table name.
func (f *Fixtures) Tables() map[string][]Record {
	return map[string][]Record{
		TableSales:     f.Sales,
		TableInventory: f.Inventory,
	}
}

// LoadFixtures reads ledger fixtures from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return nil, fmt.Errorf("fixtures file path is required")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("fixtures file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}

	return ParseFixtures(data)
}

// ParseFixtures decodes fixtures from YAML bytes.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	for i, r := range f.Sales {
		if r.String(FieldID) == "" {
			return nil, fmt.Errorf("sale at index %d has no id", i)
		}
		normalizeTimes(r)
	}
	for i, r := range f.Inventory {
		if r.String(FieldID) == "" {
			return nil, fmt.Errorf("inventory item at index %d has no id", i)
		}
		normalizeTimes(r)
	}

	return &f, nil
}

// normalizeTimes rewrites YAML timestamps as the ISO strings stores return.
func normalizeTimes(r Record) {
	for k, v := range r {
		t, ok := v.(time.Time)
		if !ok {
			continue
		}
		if t.Equal(truncateDay(t)) {
			r[k] = t.Format("2006-01-02")
		} else {
			r[k] = t.UTC().Format(time.RFC3339)
		}
	}
}
