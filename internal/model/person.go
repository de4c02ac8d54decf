// Package model implements the population state for the stochastic
// simulation: individuals, partnerships, and the Population aggregate that
// owns every derived membership set and running counter. All state
// transitions route through Population mutation methods so the derived sets
// stay exact at every observation point.
package model

import "fmt"

// ID is a stable individual identifier, doubling as the arena slot index.
type ID int

// Gender of an individual. The model is heterosexual-only.
type Gender uint8

const (
	Male Gender = iota
	Female
)

func (g Gender) String() string {
	if g == Male {
		return "male"
	}
	return "female"
}

// Activity is the sexual activity level. High activity is only possible
// below the activity cutoff age and is permanently downgraded at the cutoff.
type Activity uint8

const (
	LowActivity Activity = iota
	HighActivity
)

func (a Activity) String() string {
	if a == HighActivity {
		return "high"
	}
	return "low"
}

// DiseaseState is the position of an individual in the infection state
// machine.
type DiseaseState uint8

const (
	Susceptible DiseaseState = iota
	SymptomaticSensitive
	AsymptomaticSensitive
	SymptomaticResistant
	AsymptomaticResistant
)

// Infected reports whether the state is anything but susceptible.
func (s DiseaseState) Infected() bool { return s != Susceptible }

// Resistant reports whether the state carries the resistant strain.
func (s DiseaseState) Resistant() bool {
	return s == SymptomaticResistant || s == AsymptomaticResistant
}

// Symptomatic reports whether the state shows symptoms.
func (s DiseaseState) Symptomatic() bool {
	return s == SymptomaticSensitive || s == SymptomaticResistant
}

func (s DiseaseState) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case SymptomaticSensitive:
		return "symptomatic-sensitive"
	case AsymptomaticSensitive:
		return "asymptomatic-sensitive"
	case SymptomaticResistant:
		return "symptomatic-resistant"
	case AsymptomaticResistant:
		return "asymptomatic-resistant"
	}
	return fmt.Sprintf("DiseaseState(%d)", uint8(s))
}

// Demographic constants. An individual lives in [MinAge, MaxAge); reaching
// MaxAge triggers in-place replacement by a new MinAge-year-old.
const (
	MinAge            = 15
	MaxAge            = 65
	ActivityCutoffAge = 35
	DaysPerYear       = 365

	// NumAgeGroups is the number of decade buckets: 15-24 ... 55-64.
	NumAgeGroups = 5
)

// AgeGroupIndex maps an age in [MinAge, MaxAge) to its decade bucket.
func AgeGroupIndex(age int) int {
	return (age - MinAge) / 10
}

// Person is one simulated individual. Fields are mutated exclusively by
// Population methods.
type Person struct {
	ID       ID
	Gender   Gender
	Age      int // years, [MinAge, MaxAge]
	Day      int // days since last birthday, [0, DaysPerYear-1]
	Activity Activity

	State DiseaseState

	// TimeSinceInfection counts days since infection, -1 while susceptible.
	TimeSinceInfection int

	// NumPartners always equals len(Partners).
	NumPartners int
	Partners    map[ID]struct{}
}

// Single reports whether the person has no current partners.
func (p *Person) Single() bool { return p.NumPartners == 0 }

// HasPartner reports whether other is a current partner.
func (p *Person) HasPartner(other ID) bool {
	_, ok := p.Partners[other]
	return ok
}

// PartnershipType classifies a partnership by durability.
type PartnershipType uint8

const (
	Steady PartnershipType = iota
	Casual
)

func (t PartnershipType) String() string {
	if t == Steady {
		return "steady"
	}
	return "casual"
}

// Partnership is an undirected dyadic relation between two distinct
// individuals, valid while both remain alive and unreplaced.
type Partnership struct {
	Type PartnershipType
	A, B ID
}

// Involves reports whether id is one of the two members.
func (ps *Partnership) Involves(id ID) bool { return ps.A == id || ps.B == id }

// Other returns the partner of id within the partnership.
func (ps *Partnership) Other(id ID) ID {
	if ps.A == id {
		return ps.B
	}
	return ps.A
}
