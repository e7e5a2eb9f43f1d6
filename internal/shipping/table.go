package shipping

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_zones.yaml
var defaultTableYAML []byte

// Table is the zone rate card.
type Table struct {
	Currency          string  `yaml:"currency"`
	OriginPostcode    string  `yaml:"origin_postcode"`
	PickupEnabled     bool    `yaml:"pickup_enabled"`
	PickupLabel       string  `yaml:"pickup_label"`
	ExpressMultiplier float64 `yaml:"express_multiplier"`
	MaxWeightGrams    int     `yaml:"max_weight_grams"`
	DefaultZone       string  `yaml:"default_zone"`
	Zones             []Zone  `yaml:"zones"`
}

// Zone prices deliveries to a set of postcodes or states.
type Zone struct {
	Code          string          `yaml:"code"`
	Name          string          `yaml:"name"`
	States        []string        `yaml:"states"`
	Postcodes     []PostcodeRange `yaml:"postcodes"`
	BaseCents     int64           `yaml:"base_cents"`
	IncludedGrams int             `yaml:"included_grams"`
	PerKgCents    int64           `yaml:"per_kg_cents"`
	FreeOverCents int64           `yaml:"free_over_cents"`
	EstimatedDays string          `yaml:"estimated_days"`
	Express       bool            `yaml:"express"`
	ExpressDays   string          `yaml:"express_days"`
}

// PostcodeRange is inclusive on both ends.
type PostcodeRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Contains reports whether postcode falls inside the range.
func (r PostcodeRange) Contains(postcode int) bool {
	return postcode >= r.From && postcode <= r.To
}

// ValidationError lists every problem found in a table.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "shipping: invalid zone table: " + strings.Join(e.Problems, "; ")
}

// LoadTable decodes and validates a YAML zone table.
func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var table Table
	if err := dec.Decode(&table); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("shipping: empty zone table")
		}
		return nil, fmt.Errorf("shipping: decode zone table: %w", err)
	}
	table.applyDefaults()
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadTableFile reads a table from disk. An empty path loads the embedded default table.
func LoadTableFile(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shipping: open zone table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// DefaultTable returns the embedded rate card.
func DefaultTable() (*Table, error) {
	return LoadTable(bytes.NewReader(defaultTableYAML))
}

func (t *Table) applyDefaults() {
	if t.Currency == "" {
		t.Currency = "AUD"
	}
	t.Currency = strings.ToUpper(t.Currency)
	if t.ExpressMultiplier == 0 {
		t.ExpressMultiplier = 1.5
	}
	if t.PickupLabel == "" {
		t.PickupLabel = "Pick up"
	}
	for i := range t.Zones {
		for j, s := range t.Zones[i].States {
			t.Zones[i].States[j] = strings.ToUpper(strings.TrimSpace(s))
		}
	}
}

// Validate checks zone codes, ranges, amounts and the default zone reference.
func (t *Table) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.ExpressMultiplier < 1 {
		add("express_multiplier must be >= 1")
	}
	if t.MaxWeightGrams < 0 {
		add("max_weight_grams must not be negative")
	}
	if len(t.Zones) == 0 {
		add("at least one zone is required")
	}

	seen := make(map[string]bool, len(t.Zones))
	for i, z := range t.Zones {
		label := z.Code
		if label == "" {
			label = fmt.Sprintf("zones[%d]", i)
			add("%s: code is required", label)
		} else if seen[z.Code] {
			add("%s: duplicate zone code", label)
		}
		seen[z.Code] = true

		for _, r := range z.Postcodes {
			if r.From > r.To {
				add("%s: postcode range %d-%d is inverted", label, r.From, r.To)
			}
		}
		if z.BaseCents < 0 || z.PerKgCents < 0 || z.FreeOverCents < 0 || z.IncludedGrams < 0 {
			add("%s: amounts must not be negative", label)
		}
	}
	if t.DefaultZone != "" && !seen[t.DefaultZone] {
		add("default_zone %q does not exist", t.DefaultZone)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (t *Table) zone(code string) (*Zone, bool) {
	for i := range t.Zones {
		if t.Zones[i].Code == code {
			return &t.Zones[i], true
		}
	}
	return nil, false
}
