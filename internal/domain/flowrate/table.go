// Package flowrate resolves the pumping rate for a product and company.
package flowrate

import (
	"fmt"
	"sort"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
)

// Override raises or lowers the rate of one product for a set of companies.
type Override struct {
	Product   string   `yaml:"product" json:"product"`
	Rate      float64  `yaml:"rate" json:"rate"`
	Companies []string `yaml:"companies" json:"companies"`
}

// Table maps product codes to a base rate in volume units per hour, with
// optional company overrides. A Table is immutable once built.
type Table struct {
	base      map[string]float64
	overrides map[string]map[string]float64 // product -> company -> rate
	spec      Spec
}

// Spec is the serializable form of a Table.
type Spec struct {
	Rates     map[string]float64 `yaml:"rates" json:"rates"`
	Overrides []Override         `yaml:"overrides" json:"overrides"`
}

// DefaultSpec is the canonical rate table: diesel S10 pumps faster for the two
// privileged operators.
func DefaultSpec() Spec {
	return Spec{
		Rates: map[string]float64{
			"GAS":  500,
			"S10":  600,
			"S500": 560,
			"QAV":  240,
			"OC":   300,
		},
		Overrides: []Override{
			{Product: "S10", Rate: 1200, Companies: []string{"POO", "PET"}},
		},
	}
}

// Default returns the table built from DefaultSpec.
func Default() *Table {
	t, err := New(DefaultSpec())
	if err != nil {
		panic(err)
	}
	return t
}

// New validates spec and builds a lookup table. Codes are matched
// case-insensitively.
func New(spec Spec) (*Table, error) {
	if len(spec.Rates) == 0 {
		return nil, fmt.Errorf("flow rate table has no rates")
	}

	t := &Table{
		base:      make(map[string]float64, len(spec.Rates)),
		overrides: make(map[string]map[string]float64),
	}

	for product, rate := range spec.Rates {
		key := normalize(product)
		if key == "" {
			return nil, fmt.Errorf("flow rate table: empty product code")
		}
		t.base[key] = rate
	}

	for i, o := range spec.Overrides {
		product := normalize(o.Product)
		if _, ok := t.base[product]; !ok {
			return nil, fmt.Errorf("override %d: product %q has no base rate", i, o.Product)
		}
		if len(o.Companies) == 0 {
			return nil, fmt.Errorf("override %d: no companies listed", i)
		}
		byCompany := t.overrides[product]
		if byCompany == nil {
			byCompany = make(map[string]float64, len(o.Companies))
			t.overrides[product] = byCompany
		}
		for _, company := range o.Companies {
			key := normalize(company)
			if key == "" {
				return nil, fmt.Errorf("override %d: empty company code", i)
			}
			byCompany[key] = o.Rate
		}
	}

	t.spec = cloneSpec(spec)
	return t, nil
}

// Resolve returns the rate for product pumped by company. Unknown products
// yield models.ErrUnknownProductOrCompany; there is no fallback rate.
func (t *Table) Resolve(product, company string) (float64, error) {
	p := normalize(product)
	base, ok := t.base[p]
	if !ok {
		return 0, fmt.Errorf("resolve %q for %q: %w", product, company, models.ErrUnknownProductOrCompany)
	}
	if normalize(company) == "" {
		return 0, fmt.Errorf("resolve %q: empty company: %w", product, models.ErrUnknownProductOrCompany)
	}
	if rate, ok := t.overrides[p][normalize(company)]; ok {
		return rate, nil
	}
	return base, nil
}

// Products lists the known product codes in sorted order.
func (t *Table) Products() []string {
	out := make([]string, 0, len(t.base))
	for p := range t.base {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Spec returns a copy of the data the table was built from.
func (t *Table) Spec() Spec {
	return cloneSpec(t.spec)
}

func cloneSpec(in Spec) Spec {
	out := Spec{Rates: make(map[string]float64, len(in.Rates))}
	for k, v := range in.Rates {
		out.Rates[k] = v
	}
	for _, o := range in.Overrides {
		o.Companies = append([]string(nil), o.Companies...)
		out.Overrides = append(out.Overrides, o)
	}
	return out
}

func normalize(code string) string {
	return models.NormalizeCode(code)
}
