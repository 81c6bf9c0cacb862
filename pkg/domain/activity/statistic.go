package activity

import "fmt"

// Facet selects one of the independent values a Statistic can carry.
type Facet int

const (
	FacetValue Facet = iota
	FacetMin
	FacetMax
	FacetAverage
	FacetGain
	FacetLoss
)

var facetNames = [...]string{"value", "min", "max", "avg", "gain", "loss"}

func (f Facet) String() string {
	if int(f) < len(facetNames) {
		return facetNames[f]
	}
	return fmt.Sprintf("Facet(%d)", int(f))
}

// AllFacets lists every facet in a stable order.
var AllFacets = []Facet{FacetValue, FacetMin, FacetMax, FacetAverage, FacetGain, FacetLoss}

// Statistic is a physical quantity with a unit and up to six optional facets.
// Facet pointers are never mutated in place; setters always allocate, so
// copying a Statistic by value is safe.
type Statistic struct {
	Unit    Unit     `json:"unit"`
	Value   *float64 `json:"value,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Average *float64 `json:"avg,omitempty"`
	Gain    *float64 `json:"gain,omitempty"`
	Loss    *float64 `json:"loss,omitempty"`
}

// NewStatistic returns a Statistic in unit u with a single facet set.
func NewStatistic(u Unit, f Facet, v float64) Statistic {
	s := Statistic{Unit: u}
	s.SetFacet(f, v)
	return s
}

func (s *Statistic) slot(f Facet) **float64 {
	switch f {
	case FacetValue:
		return &s.Value
	case FacetMin:
		return &s.Min
	case FacetMax:
		return &s.Max
	case FacetAverage:
		return &s.Average
	case FacetGain:
		return &s.Gain
	case FacetLoss:
		return &s.Loss
	}
	return nil
}

// Facet returns the facet value and whether it is set.
func (s *Statistic) Facet(f Facet) (float64, bool) {
	p := s.slot(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SetFacet sets facet f to v.
func (s *Statistic) SetFacet(f Facet, v float64) {
	if p := s.slot(f); p != nil {
		*p = &v
	}
}

// ClearFacet unsets facet f.
func (s *Statistic) ClearFacet(f Facet) {
	if p := s.slot(f); p != nil {
		*p = nil
	}
}

// IsEmpty reports whether no facet is set.
func (s *Statistic) IsEmpty() bool {
	for _, f := range AllFacets {
		if _, ok := s.Facet(f); ok {
			return false
		}
	}
	return true
}

// AsUnits returns a copy of s with every set facet converted to u.
func (s Statistic) AsUnits(u Unit) (Statistic, error) {
	if s.Unit == u {
		return s, nil
	}
	out := Statistic{Unit: u}
	for _, f := range AllFacets {
		v, ok := s.Facet(f)
		if !ok {
			continue
		}
		cv, err := Convert(v, s.Unit, u)
		if err != nil {
			return Statistic{}, err
		}
		out.SetFacet(f, cv)
	}
	return out, nil
}

// Update copies every facet set on other into s, converting to s.Unit first.
// A receiver without a unit adopts other's unit.
func (s *Statistic) Update(other Statistic) error {
	if other.IsEmpty() {
		return nil
	}
	if s.Unit == UnitNone {
		s.Unit = other.Unit
	}
	converted, err := other.AsUnits(s.Unit)
	if err != nil {
		return err
	}
	for _, f := range AllFacets {
		if v, ok := converted.Facet(f); ok {
			s.SetFacet(f, v)
		}
	}
	return nil
}

// Equal compares unit and facets by value.
func (s Statistic) Equal(o Statistic) bool {
	if s.Unit != o.Unit {
		return false
	}
	for _, f := range AllFacets {
		a, aok := s.Facet(f)
		b, bok := o.Facet(f)
		if aok != bok || a != b {
			return false
		}
	}
	return true
}
