package models

import (
	"math"
	"sort"
)

// Recipe is what the backend knows about a recipe code.
type Recipe struct {
	Code      string
	Name      string
	Materials []MaterialQuantity
}

type MaterialQuantity struct {
	Material string
	Quantity float64
}

// Contribution records how much of a material one pending order needs.
type Contribution struct {
	OrderCode         string  `json:"order_code"`
	OrderName         string  `json:"order_name"`
	ProductionOrderID string  `json:"production_order_id"`
	Quantity          float64 `json:"quantity"`
}

type ExcipientEntry struct {
	Total         float64        `json:"total"`
	Contributions []Contribution `json:"contributions"`
}

// Excipients maps a material name to its aggregated entry.
type Excipients map[string]*ExcipientEntry

// Names returns the material names in lexical order.
func (e Excipients) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies the mapping.
func (e Excipients) Clone() Excipients {
	out := make(Excipients, len(e))
	for name, entry := range e {
		out[name] = &ExcipientEntry{
			Total:         entry.Total,
			Contributions: append([]Contribution(nil), entry.Contributions...),
		}
	}
	return out
}

// Round3 rounds half away from zero to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// SumContributions adds the contribution quantities and rounds once.
func SumContributions(cs []Contribution) float64 {
	total := 0.0
	for _, c := range cs {
		total += c.Quantity
	}
	return Round3(total)
}
